// Package llmclient executes authenticated requests against the GigaChat API:
// - URL building from the base URL, endpoint and query
// - Request marshaling and response unmarshaling
// - Bearer credential attachment
// - Status classification into typed errors
//
// Every call is sent exactly once; nothing is retried.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gigachat/pkg/core"
)

// DefaultBaseURL is the main API base.
const DefaultBaseURL = "https://gigachat.devices.sberbank.ru/api/v1/"

// TokenSource supplies the Authorization header value for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Config holds configuration for the client
type Config struct {
	// BaseURL is the API base URL
	BaseURL string

	// UserAgent is sent with every request when set
	UserAgent string
}

// Client is the request executor shared by every feature call.
type Client struct {
	httpClient   *http.Client
	config       Config
	tokens       TokenSource
	headerSetter HeaderSetter
	hooks        Hooks
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHooks installs observability callbacks.
func WithHooks(hooks Hooks) Option {
	return func(c *Client) { c.hooks = hooks }
}

// WithHeaderSetter adds headers to every request before the request's own headers.
func WithHeaderSetter(setter HeaderSetter) Option {
	return func(c *Client) { c.headerSetter = setter }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client. tokens may be nil for unauthenticated calls.
func New(httpClient *http.Client, config Config, tokens TokenSource, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		config:     config,
		tokens:     tokens,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	// Route names the endpoint for hooks when Endpoint embeds identifiers,
	// e.g. "files/{id}/content". Defaults to Endpoint.
	Route string
	Query url.Values
	// Body is JSON marshaled if not nil
	Body any
	// RawBody is sent verbatim with ContentType when Body is nil
	RawBody     []byte
	ContentType string
	Headers     map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes a request and unmarshals the JSON response into result.
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	return c.DoWith(ctx, req, func(body []byte) error {
		if result == nil {
			return nil
		}
		return json.Unmarshal(body, result)
	})
}

// DoWith executes a request and hands the successful body to decode.
// A decode error becomes a parse_response error carrying the raw body.
func (c *Client) DoWith(ctx context.Context, req Request, decode func(body []byte) error) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if err := decode(resp.Body); err != nil {
		return core.NewParseResponseError("failed to unmarshal response from "+req.Endpoint, resp.Body, err)
	}
	return nil
}

// DoRaw executes a request and returns the raw successful response.
func (c *Client) DoRaw(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, finish := c.observe(ctx, req, false)
	var status int
	defer func() { finish(status, err) }()

	httpResp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()
	status = httpResp.StatusCode

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, core.NewTransportError("failed to read response", err)
	}
	if !isSuccess(httpResp.StatusCode) {
		return nil, core.NewBadResponseError(httpResp.StatusCode, body)
	}

	c.logger.Debug("request completed", "endpoint", req.Endpoint, "status", httpResp.StatusCode, "bytes", len(body))
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

// DoStream executes a request and returns the open response body on success.
// The caller owns the body and must close it.
func (c *Client) DoStream(ctx context.Context, req Request) (body io.ReadCloser, err error) {
	ctx, finish := c.observe(ctx, req, true)
	var status int
	defer func() { finish(status, err) }()

	httpResp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	status = httpResp.StatusCode

	if !isSuccess(httpResp.StatusCode) {
		respBody, readErr := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if readErr != nil {
			return nil, core.NewTransportError("failed to read error response", readErr)
		}
		return nil, core.NewBadResponseError(httpResp.StatusCode, respBody)
	}

	c.logger.Debug("stream opened", "endpoint", req.Endpoint)
	return httpResp.Body, nil
}

// send performs the single attempt. The returned body is already decompressed.
func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("failed to send request", err)
	}

	decoded, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, core.NewTransportError("failed to decode response encoding", err)
	}
	resp.Body = decoded
	return resp, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := BuildURL(c.config.BaseURL, req.Endpoint, req.Query)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	contentType := req.ContentType
	switch {
	case req.Body != nil:
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
		if contentType == "" {
			contentType = "application/json"
		}
	case req.RawBody != nil:
		bodyReader = bytes.NewReader(req.RawBody)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", acceptEncoding)
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	// Authorization goes last so request headers cannot replace it.
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", token)
	}

	return httpReq, nil
}

// BuildURL joins base and endpoint and appends the query.
// The endpoint is always resolved below the base path.
func BuildURL(base, endpoint string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", core.NewBuildURLError(base, endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", core.NewBuildURLError(base, endpoint, errMissingSchemeOrHost)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	ref, err := url.Parse(strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", core.NewBuildURLError(base, endpoint, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", core.NewBuildURLError(base, endpoint, errAbsoluteEndpoint)
	}

	resolved := u.ResolveReference(ref)
	if len(query) > 0 {
		q := resolved.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		resolved.RawQuery = q.Encode()
	}
	return resolved.String(), nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func (c *Client) observe(ctx context.Context, req Request, stream bool) (context.Context, func(int, error)) {
	info := RequestInfo{Endpoint: req.Endpoint, Route: req.Route, Method: req.Method, Stream: stream}
	if info.Route == "" {
		info.Route = req.Endpoint
	}
	if info.Method == "" {
		info.Method = http.MethodGet
	}
	if c.hooks.OnRequestStart != nil {
		ctx = c.hooks.OnRequestStart(ctx, info)
	}
	start := time.Now()
	return ctx, func(status int, err error) {
		if c.hooks.OnRequestEnd == nil {
			return
		}
		c.hooks.OnRequestEnd(ctx, ResponseInfo{
			RequestInfo: info,
			StatusCode:  status,
			Duration:    time.Since(start),
			Error:       err,
		})
	}
}
