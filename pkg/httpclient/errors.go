package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// errorBody covers the two error envelopes the storefront backend emits on
// non-2xx responses: the GraphQL `errors[]` list and a flat `{"error": ...}`.
type errorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Error any `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, backend string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", backend, resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(bodyBytes))
	var body errorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		switch {
		case len(body.Errors) > 0 && body.Errors[0].Message != "":
			message = body.Errors[0].Message
		case body.Error != nil:
			message = errorText(body.Error)
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, fmt.Sprintf("%s: %s", backend, message))
}

func errorText(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			return m
		}
	}
	return fmt.Sprint(v)
}

func mapStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited(message)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: message,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	default:
		return apperrors.Upstream(status, message)
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
