// Package auth exchanges the long-lived authorization key for short-lived
// bearer credentials and caches them for concurrent callers.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"gigachat/pkg/core"
)

// DefaultURL is the credential exchange endpoint.
const DefaultURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

const bearerPrefix = "Bearer "

// Authenticator mints credentials from the authorization key.
type Authenticator struct {
	httpClient *http.Client
	url        string
	secret     string
	scope      core.Scope
	logger     *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithURL overrides the exchange endpoint.
func WithURL(u string) Option {
	return func(a *Authenticator) { a.url = u }
}

// WithScope selects the credential audience.
func WithScope(scope core.Scope) Option {
	return func(a *Authenticator) { a.scope = scope }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

// NewAuthenticator creates an Authenticator. The secret is the base64
// authorization key issued for the account.
func NewAuthenticator(httpClient *http.Client, secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		httpClient: httpClient,
		url:        DefaultURL,
		secret:     secret,
		scope:      core.DefaultScope,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = http.DefaultClient
	}
	return a
}

// Scope returns the audience credentials are minted for.
func (a *Authenticator) Scope() core.Scope {
	return a.scope
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Refresh performs one credential exchange.
func (a *Authenticator) Refresh(ctx context.Context) (core.Credential, error) {
	form := url.Values{"scope": {string(a.scope)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, strings.NewReader(form.Encode()))
	if err != nil {
		return core.Credential{}, core.NewTransportError("failed to create auth request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", bearerPrefix+a.secret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return core.Credential{}, core.NewTransportError("failed to send auth request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Credential{}, core.NewTransportError("failed to read auth response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.Credential{}, core.NewAuthFailedError(core.NewBadResponseError(resp.StatusCode, body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return core.Credential{}, core.NewAuthResponseMalformedError(body, err)
	}
	if tr.AccessToken == "" {
		return core.Credential{}, core.NewAuthResponseMalformedError(body, nil)
	}

	cred := core.Credential{
		AccessToken: normalize(tr.AccessToken),
		Scope:       a.scope,
		ExpiresAt:   time.UnixMilli(tr.ExpiresAt),
	}
	a.logger.Debug("credential minted", "scope", a.scope, "expires_at", cred.ExpiresAt)
	return cred, nil
}

func normalize(token string) string {
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}
	return bearerPrefix + token
}
