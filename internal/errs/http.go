package errs

import "net/http"

// NewBadRequest creates a 400 error, optionally carrying field errors.
func NewBadRequest(message string, fields ...FieldError) *HTTPError {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
		Errors:  fields,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(message string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// NewMethodNotAllowed creates a 405 error.
func NewMethodNotAllowed(message string) *HTTPError {
	return &HTTPError{Status: http.StatusMethodNotAllowed, Code: CodeMethodNotAllowed, Message: message}
}

// NewConflict creates a 409 error.
func NewConflict(message string) *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

// NewPayloadTooLarge creates a 413 error.
func NewPayloadTooLarge(message string) *HTTPError {
	return &HTTPError{Status: http.StatusRequestEntityTooLarge, Code: CodePayloadTooLarge, Message: message}
}

// NewUnsupportedMediaType creates a 415 error.
func NewUnsupportedMediaType(message string) *HTTPError {
	return &HTTPError{Status: http.StatusUnsupportedMediaType, Code: CodeUnsupportedMediaType, Message: message}
}

// NewTooManyRequests creates a 429 error.
func NewTooManyRequests(message string) *HTTPError {
	return &HTTPError{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: message}
}

// NewInternal creates a 500 error. The message is the generic status text so
// internal details never reach clients; attach the real error with WithCause.
func NewInternal() *HTTPError {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
	}
}
