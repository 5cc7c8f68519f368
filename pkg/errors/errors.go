package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for the storefront client.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrNetwork        = errors.New("network error")
	ErrStorage        = errors.New("storage error")
	ErrRateLimited    = errors.New("rate limited")
	ErrUpstream       = errors.New("upstream error")
	ErrConflict       = errors.New("conflict")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Conflict creates a 409 error. cause, when set, is kept for errors.Is.
func Conflict(message string, cause error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     errors.Join(ErrConflict, cause),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Network wraps a transport failure talking to the backend.
func Network(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "backend unreachable",
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrNetwork, err),
	}
}

// Storage wraps a secure storage failure.
func Storage(op string, err error) *AppError {
	return &AppError{
		Code:    "STORAGE_ERROR",
		Message: fmt.Sprintf("secure storage %s failed", op),
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrStorage, err),
	}
}

// RateLimited creates a 429 error.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Upstream reports a backend response the client could not use.
func Upstream(status int, message string) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: status %d", ErrUpstream, status),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
