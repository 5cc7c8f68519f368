package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func tracedRouter(status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Tracing("http"))
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestTracing_SpanNamedByRoute(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/products/UHJvZHVjdDox", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/products/{id}", spans[0].Name)
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	tracedRouter(http.StatusBadGateway).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	var status int64
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "http.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusBadGateway), status)
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	exporter := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	tracedRouter(http.StatusOK).ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.NotEmpty(t, rec.Header().Get("traceparent"))
}
