// Package errs defines the typed HTTP error used across the service and the
// helpers that classify arbitrary errors into it.
//
// Handlers attach errors to the Gin context instead of writing error bodies;
// middleware.ErrorHandler turns them into a single JSON envelope shape:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "status": 400,
//	  "error": "Bad Request",
//	  "code": "bad_request",
//	  "message": "validation failed",
//	  "errors": [{ "field": "name", "error": "must be a string" }]
//	}
package errs

import (
	"errors"
	"net/http"
)

// Stable, machine-readable codes. Clients branch on these, not on messages.
const (
	CodeBadRequest           = "bad_request"
	CodeNotFound             = "not_found"
	CodeMethodNotAllowed     = "method_not_allowed"
	CodeConflict             = "conflict"
	CodePayloadTooLarge      = "payload_too_large"
	CodeUnsupportedMediaType = "unsupported_media_type"
	CodeRateLimited          = "too_many_requests"
	CodeInternal             = "internal_error"
)

// FieldError is a field-level validation failure.
type FieldError struct {
	Field string `json:"field" example:"name"`
	Error string `json:"error" example:"must be a string"`
}

// HTTPError is an error that knows which HTTP status it maps to.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Errors  []FieldError

	// cause is kept for logging; it is never serialized.
	cause error
}

func (e *HTTPError) Error() string { return e.Message }

// Unwrap exposes the underlying cause, if any.
func (e *HTTPError) Unwrap() error { return e.cause }

// WithCause returns a copy of e that wraps cause.
func (e *HTTPError) WithCause(cause error) *HTTPError {
	cp := *e
	cp.cause = cause
	return &cp
}

// Response is the JSON error envelope returned by every endpoint.
type Response struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// HTTP status code, repeated in the body for clients that lose it
	Status int `json:"status" example:"404"`
	// Standard reason phrase for Status
	Error string `json:"error" example:"Not Found"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"account not found"`
	// Field-level validation failures, when any
	Errors []FieldError `json:"errors,omitempty"`
}

// Response renders e as the public envelope.
func (e *HTTPError) Response(requestID string) Response {
	return Response{
		RequestID: requestID,
		Status:    e.Status,
		Error:     http.StatusText(e.Status),
		Code:      e.Code,
		Message:   e.Message,
		Errors:    e.Errors,
	}
}

// From classifies err into an *HTTPError. Errors that already carry a status
// are returned as-is; body-size violations become 413; everything else is an
// opaque 500 that keeps err as its cause.
func From(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return NewPayloadTooLarge("request body too large").WithCause(err)
	}
	return NewInternal().WithCause(err)
}
