// Package core provides the public types shared by the GigaChat client packages:
// wire shapes, model identifiers, credentials and the error taxonomy.
package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the layer/class of an SDK error.
type ErrorType string

const (
	// ErrorTypeTransport indicates the request could not be sent or the body could not be read
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeAuthFailed indicates the credential exchange endpoint rejected the secret
	ErrorTypeAuthFailed ErrorType = "auth_failed"
	// ErrorTypeAuthResponseMalformed indicates a 2xx auth response that is not a credential
	ErrorTypeAuthResponseMalformed ErrorType = "auth_response_malformed"
	// ErrorTypeBadResponse indicates a non-2xx status from the service
	ErrorTypeBadResponse ErrorType = "bad_response"
	// ErrorTypeParseResponse indicates a 2xx body that does not match the expected shape
	ErrorTypeParseResponse ErrorType = "parse_response"
	// ErrorTypeStreamDeserialization indicates an SSE data payload that does not match the fragment shape
	ErrorTypeStreamDeserialization ErrorType = "stream_deserialization_failed"
	// ErrorTypeEventParse indicates malformed SSE framing
	ErrorTypeEventParse ErrorType = "event_parse_failed"
	// ErrorTypeBuildURL indicates an invalid base/path combination
	ErrorTypeBuildURL ErrorType = "build_url"
	// ErrorTypeBadFunction indicates the service rejected a function schema
	ErrorTypeBadFunction ErrorType = "bad_function"
	// ErrorTypeBatchSerialization indicates a batch could not be encoded as JSONL
	ErrorTypeBatchSerialization ErrorType = "batch_serialization_failed"
	// ErrorTypeInvalidRequest indicates the caller supplied an unusable request
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// Sentinels for errors.Is matching by type.
var (
	ErrTransport             = &Error{Type: ErrorTypeTransport}
	ErrAuthFailed            = &Error{Type: ErrorTypeAuthFailed}
	ErrAuthResponseMalformed = &Error{Type: ErrorTypeAuthResponseMalformed}
	ErrBadResponse           = &Error{Type: ErrorTypeBadResponse}
	ErrParseResponse         = &Error{Type: ErrorTypeParseResponse}
	ErrStreamDeserialization = &Error{Type: ErrorTypeStreamDeserialization}
	ErrEventParse            = &Error{Type: ErrorTypeEventParse}
	ErrBuildURL              = &Error{Type: ErrorTypeBuildURL}
	ErrBadFunction           = &Error{Type: ErrorTypeBadFunction}
	ErrBatchSerialization    = &Error{Type: ErrorTypeBatchSerialization}
	ErrInvalidRequest        = &Error{Type: ErrorTypeInvalidRequest}
)

// Error is the single error type produced by the client packages.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// StatusCode is the HTTP status for bad_response and auth_failed errors
	StatusCode int `json:"status_code,omitempty"`
	// Body holds the raw response body or SSE payload for diagnosis
	Body string `json:"body,omitempty"`
	// Diagnostics carries the service verdict for bad_function errors
	Diagnostics []FunctionDiagnostic `json:"diagnostics,omitempty"`
	// Err is the underlying cause
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s; body %q", msg, truncate(e.Body, 512))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// HTTPStatusCode returns the status reported by the service, or a best-effort
// equivalent for errors that never reached it.
func (e *Error) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeBuildURL, ErrorTypeBatchSerialization, ErrorTypeBadFunction:
		return http.StatusBadRequest
	case ErrorTypeAuthFailed:
		return http.StatusUnauthorized
	case ErrorTypeTransport, ErrorTypeParseResponse, ErrorTypeStreamDeserialization, ErrorTypeEventParse, ErrorTypeAuthResponseMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NewTransportError creates an error for a failed send or body read
func NewTransportError(message string, err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: message, Err: err}
}

// NewBadResponseError creates an error for a non-2xx status, keeping the body verbatim
func NewBadResponseError(statusCode int, body []byte) *Error {
	return &Error{
		Type:       ErrorTypeBadResponse,
		Message:    "bad response",
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// NewParseResponseError creates an error for a 2xx body that could not be decoded
func NewParseResponseError(message string, body []byte, err error) *Error {
	return &Error{Type: ErrorTypeParseResponse, Message: message, Body: string(body), Err: err}
}

// NewAuthFailedError creates an error for a rejected credential exchange
func NewAuthFailedError(cause *Error) *Error {
	e := &Error{Type: ErrorTypeAuthFailed, Message: "authentication failed", Err: cause}
	if cause != nil {
		e.StatusCode = cause.StatusCode
		e.Body = cause.Body
	}
	return e
}

// NewAuthResponseMalformedError creates an error for an unparseable credential
func NewAuthResponseMalformedError(body []byte, err error) *Error {
	return &Error{
		Type:    ErrorTypeAuthResponseMalformed,
		Message: "failed to parse token response",
		Body:    string(body),
		Err:     err,
	}
}

// NewStreamDeserializationError creates an error for an undecodable event payload
func NewStreamDeserializationError(payload string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStreamDeserialization,
		Message: "failed to deserialize stream event",
		Body:    payload,
		Err:     err,
	}
}

// NewEventParseError creates an error for malformed SSE framing
func NewEventParseError(message string, err error) *Error {
	return &Error{Type: ErrorTypeEventParse, Message: message, Err: err}
}

// NewBuildURLError creates an error for an invalid base URL and path combination
func NewBuildURLError(base, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeBuildURL,
		Message: fmt.Sprintf("failed to build url from base %q and path %q", base, path),
		Err:     err,
	}
}

// NewBadFunctionError creates an error carrying the service's function diagnostics
func NewBadFunctionError(diagnostics []FunctionDiagnostic) *Error {
	return &Error{
		Type:        ErrorTypeBadFunction,
		Message:     fmt.Sprintf("bad function; %d error(s)", len(diagnostics)),
		Diagnostics: diagnostics,
	}
}

// NewBatchSerializationError creates an error for a request that cannot be encoded as JSONL
func NewBatchSerializationError(index int, err error) *Error {
	return &Error{
		Type:    ErrorTypeBatchSerialization,
		Message: fmt.Sprintf("failed to serialize batch request %d to jsonl", index),
		Err:     err,
	}
}

// NewInvalidRequestError creates an error for a request rejected before sending
func NewInvalidRequestError(message string, err error) *Error {
	return &Error{Type: ErrorTypeInvalidRequest, Message: message, Err: err}
}
