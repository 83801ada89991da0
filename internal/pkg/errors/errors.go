// Package errors defines the error values returned to API clients.
//
// Services return *APIError for failures the client can act on and plain
// wrapped errors for everything else; the response package renders the
// latter as internal errors.
package errors

import (
	"errors"
	"net/http"
)

// APIError is an error with a stable machine-readable code and an HTTP status.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a different message.
func (e *APIError) WithMessage(message string) *APIError {
	c := *e
	c.Message = message
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *APIError) WithDetails(details any) *APIError {
	c := *e
	c.Details = details
	return &c
}

// New creates an APIError.
func New(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: status}
}

var (
	// ErrUnauthorized means the session is missing, expired or unknown.
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Unauthorized")

	// ErrForbidden means the resource belongs to another user.
	ErrForbidden = New(http.StatusForbidden, "forbidden", "Forbidden")

	ErrNotFound    = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrBadRequest  = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrConflict    = New(http.StatusConflict, "conflict", "Resource already exists")
	ErrRateLimited = New(http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
	ErrInternal    = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")

	// ErrUpstream is returned when the weather or payment provider fails.
	ErrUpstream = New(http.StatusBadGateway, "upstream_error", "Upstream service failed")

	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable")
)

const codeValidation = "validation_error"

// NewValidationError reports a single invalid field.
func NewValidationError(field, message string) *APIError {
	return New(http.StatusBadRequest, codeValidation, "Validation failed: "+message).
		WithDetails(map[string]string{field: message})
}

// NewValidationErrors reports several invalid fields keyed by field name.
func NewValidationErrors(fields map[string]string) *APIError {
	return New(http.StatusBadRequest, codeValidation, "One or more fields failed validation").
		WithDetails(fields)
}

// NewBadRequestError creates a 400 error with a specific code.
func NewBadRequestError(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func NewNotFoundError(message string) *APIError {
	return ErrNotFound.WithMessage(message)
}

func NewConflictError(message string) *APIError {
	return ErrConflict.WithMessage(message)
}

func NewUnauthorizedError(message string) *APIError {
	return ErrUnauthorized.WithMessage(message)
}

// IsAPIError reports whether err is, or wraps, an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AsAPIError unwraps err to an *APIError, falling back to ErrInternal.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
