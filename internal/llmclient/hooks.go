package llmclient

import (
	"context"
	"errors"
	"time"
)

var (
	errMissingSchemeOrHost = errors.New("base url must be absolute")
	errAbsoluteEndpoint    = errors.New("endpoint must be relative to the base url")
)

// RequestInfo describes a call as it starts.
type RequestInfo struct {
	Endpoint string
	// Route is the endpoint template, free of identifiers.
	Route  string
	Method string
	Stream bool
}

// ResponseInfo describes a finished call. StatusCode is zero when no
// response was received. For streams the call finishes once the body is open.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Hooks observe every executed request.
type Hooks struct {
	// OnRequestStart may return a derived context that is used for the call
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}
