package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/logger"
)

func logFromHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogger_IncludesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf), nil)(logFromHandler())

	ctx := logger.WithCorrelationID(context.Background(), "corr-test-123")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.Equal(t, "corr-test-123", lastLine(t, &buf)["correlation_id"])
}

func TestRequestLogger_IncludesSignedInUser(t *testing.T) {
	var buf bytes.Buffer
	current := func(context.Context) (string, bool) { return "VXNlcjo0Mg==", true }
	h := RequestLogger(newTestLogger(&buf), current)(logFromHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "VXNlcjo0Mg==", lastLine(t, &buf)["user_id"])
}

func TestRequestLogger_AnonymousOmitsUserID(t *testing.T) {
	var buf bytes.Buffer
	current := func(context.Context) (string, bool) { return "", false }
	h := RequestLogger(newTestLogger(&buf), current)(logFromHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	_, ok := lastLine(t, &buf)["user_id"]
	assert.False(t, ok, "user_id should not be present when nobody is signed in")
}

func TestRequestLogger_IncludesTraceFields(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf), nil)(logFromHandler())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	out := lastLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}
