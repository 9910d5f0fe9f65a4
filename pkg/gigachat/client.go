// Package gigachat is a client for the GigaChat generative API: chat
// completions (plain and streamed), embeddings, AI-text checks, function
// validation and asynchronous batch jobs.
//
// A Client holds one credential cache and one HTTP transport. It is safe for
// concurrent use and should be shared:
//
//	client, err := gigachat.New(ctx, os.Getenv("GIGACHAT_CREDENTIALS"))
//	if err != nil {
//		return err
//	}
//	resp, err := client.Generate().
//		WithMessages(core.UserMessage("Hello")).
//		Execute(ctx)
package gigachat

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gigachat/config"
	"gigachat/internal/auth"
	"gigachat/internal/httpclient"
	"gigachat/internal/llmclient"
	"gigachat/internal/observability"
	"gigachat/internal/version"
	"gigachat/pkg/core"
)

// Hooks observe every request the client sends.
type Hooks = llmclient.Hooks

// RequestInfo and ResponseInfo are passed to Hooks.
type (
	RequestInfo  = llmclient.RequestInfo
	ResponseInfo = llmclient.ResponseInfo
)

// Client is the entry point to every API operation.
type Client struct {
	exec           *llmclient.Client
	tokens         *auth.TokenCache
	logger         *slog.Logger
	model          core.ChatModel
	embeddingModel core.EmbeddingModel
}

type options struct {
	scope          core.Scope
	authURL        string
	baseURL        string
	httpClient     *http.Client
	httpConfig     *httpclient.ClientConfig
	rootCAs        []byte
	hooks          Hooks
	registerer     prometheus.Registerer
	logger         *slog.Logger
	tokenObserver  func(error)
	clock          func() time.Time
	lazyAuth       bool
	userAgent      string
	headers        map[string]string
	model          core.ChatModel
	embeddingModel core.EmbeddingModel
}

// Option configures a Client.
type Option func(*options)

// WithScope selects the credential audience. Defaults to core.ScopePersonal.
func WithScope(scope core.Scope) Option {
	return func(o *options) { o.scope = scope }
}

// WithAuthURL overrides the credential exchange endpoint.
func WithAuthURL(u string) Option {
	return func(o *options) { o.authURL = u }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient uses the given client for every call. WithRootCAs is
// ignored when a client is supplied.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRootCAs trusts the PEM bundle in addition to the system roots.
func WithRootCAs(pem []byte) Option {
	return func(o *options) { o.rootCAs = pem }
}

// WithHooks installs request observers.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithMetrics registers Prometheus collectors for requests and credential
// refreshes with reg. It replaces hooks and the token observer set by other options.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogger sets the logger. Client output is at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenObserver is called after every credential exchange with its error.
func WithTokenObserver(fn func(error)) Option {
	return func(o *options) { o.tokenObserver = fn }
}

// WithClock replaces time.Now for credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithLazyAuth defers the first credential exchange to the first request.
func WithLazyAuth() Option {
	return func(o *options) { o.lazyAuth = true }
}

// WithUserAgent replaces the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithHeaders adds headers to every API request. They cannot replace
// Authorization; per-request headers win over them.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) { o.headers = maps.Clone(headers) }
}

// WithDefaultModel sets the model used by Generate when none is given.
func WithDefaultModel(m core.ChatModel) Option {
	return func(o *options) { o.model = m }
}

// WithDefaultEmbeddingModel sets the model used by Embeddings when none is given.
func WithDefaultEmbeddingModel(m core.EmbeddingModel) Option {
	return func(o *options) { o.embeddingModel = m }
}

func withHTTPConfig(cfg httpclient.ClientConfig) Option {
	return func(o *options) { o.httpConfig = &cfg }
}

// New creates a client and performs the first credential exchange, so a bad
// secret fails here rather than on the first request.
func New(ctx context.Context, secret string, opts ...Option) (*Client, error) {
	if secret == "" {
		return nil, core.NewInvalidRequestError("authorization key is required", nil)
	}

	o := options{
		scope:          core.DefaultScope,
		authURL:        auth.DefaultURL,
		baseURL:        llmclient.DefaultBaseURL,
		logger:         slog.Default(),
		userAgent:      version.UserAgent(),
		model:          core.DefaultChatModel,
		embeddingModel: core.DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		cfg := httpclient.DefaultConfig()
		if o.httpConfig != nil {
			cfg = *o.httpConfig
		}
		cfg.RootCAs = o.rootCAs
		var err error
		if httpClient, err = httpclient.NewHTTPClient(&cfg); err != nil {
			return nil, core.NewInvalidRequestError("failed to configure transport", err)
		}
	}

	if o.registerer != nil {
		metrics, err := observability.NewMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		o.hooks = metrics.Hooks()
		o.tokenObserver = metrics.ObserveTokenRefresh
	}

	authenticator := auth.NewAuthenticator(httpClient, secret,
		auth.WithURL(o.authURL),
		auth.WithScope(o.scope),
		auth.WithLogger(o.logger),
	)
	cacheOpts := []auth.CacheOption{auth.WithCacheLogger(o.logger)}
	if o.clock != nil {
		cacheOpts = append(cacheOpts, auth.WithClock(o.clock))
	}
	if o.tokenObserver != nil {
		cacheOpts = append(cacheOpts, auth.WithObserver(o.tokenObserver))
	}
	tokens := auth.NewTokenCache(authenticator, cacheOpts...)

	execOpts := []llmclient.Option{
		llmclient.WithHooks(o.hooks),
		llmclient.WithLogger(o.logger),
	}
	if len(o.headers) > 0 {
		headers := o.headers
		execOpts = append(execOpts, llmclient.WithHeaderSetter(func(req *http.Request) {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
		}))
	}

	c := &Client{
		exec: llmclient.New(httpClient,
			llmclient.Config{BaseURL: o.baseURL, UserAgent: o.userAgent},
			tokens,
			execOpts...,
		),
		tokens:         tokens,
		logger:         o.logger,
		model:          o.model,
		embeddingModel: o.embeddingModel,
	}

	if !o.lazyAuth {
		if err := tokens.Prime(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewFromConfig creates a client from loaded configuration. opts are applied
// after the configured values.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	scope, err := core.ParseScope(cfg.GigaChat.Scope)
	if err != nil {
		return nil, core.NewInvalidRequestError("invalid scope", err)
	}
	pem, err := cfg.RootCAs()
	if err != nil {
		return nil, core.NewInvalidRequestError("invalid ca bundle", err)
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
	httpCfg.ResponseHeaderTimeout = time.Duration(cfg.HTTP.ResponseHeaderTimeout) * time.Second

	base := []Option{
		WithScope(scope),
		WithAuthURL(cfg.GigaChat.AuthURL),
		WithBaseURL(cfg.GigaChat.BaseURL),
		WithRootCAs(pem),
		withHTTPConfig(httpCfg),
	}
	if cfg.GigaChat.Model != "" {
		base = append(base, WithDefaultModel(core.ChatModel(cfg.GigaChat.Model)))
	}
	if cfg.GigaChat.EmbeddingModel != "" {
		base = append(base, WithDefaultEmbeddingModel(core.EmbeddingModel(cfg.GigaChat.EmbeddingModel)))
	}
	return New(ctx, cfg.GigaChat.Credentials, append(base, opts...)...)
}

// Credential returns the current credential, refreshing it if it has expired.
func (c *Client) Credential(ctx context.Context) (core.Credential, error) {
	return c.tokens.Current(ctx)
}

// InvalidateCredential forces the next request to mint a new credential.
func (c *Client) InvalidateCredential() {
	c.tokens.Invalidate()
}
