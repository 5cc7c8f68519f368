package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the JSON envelope every local API endpoint answers with.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the envelope's data field.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError writes a standardized error response. AppErrors keep their own
// code, message and status; anything else is reported by sentinel, and
// unclassified errors are logged and surfaced as INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteValidationError(w, r, err)
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "request failed",
				logger.Err(err),
				slog.String("code", appErr.Code),
				slog.String("path", r.URL.Path),
			)
		}
		WriteJSON(w, appErr.Status, Response{
			Error: &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", "an internal error occurred"
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = "UNAUTHORIZED", "sign in required"
	case errors.Is(err, apperrors.ErrRateLimited):
		code, message = "RATE_LIMITED", "too many attempts"
	case errors.Is(err, apperrors.ErrNetwork):
		code, message = "NETWORK_ERROR", "backend unreachable"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			logger.Err(err),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

// WriteValidationError writes a 400 with field-level messages when err is a
// *validator.ValidationError, and a plain INVALID_INPUT otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   valErr.First(),
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}
