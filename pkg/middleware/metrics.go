package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
		[]string{"service"},
	)
)

// PrometheusMetrics returns middleware that collects HTTP metrics labelled by
// chi route pattern, so /api/v1/cart/items/{id} is one series regardless of id.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			inFlight := httpRequestsInFlight.WithLabelValues(serviceName)
			inFlight.Inc()
			defer inFlight.Dec()

			sw := wrap(w)
			next.ServeHTTP(sw, r)

			route := "unknown"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := strconv.Itoa(sw.status)

			httpRequestsTotal.WithLabelValues(serviceName, r.Method, route, status).Inc()
			httpRequestDuration.WithLabelValues(serviceName, r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}
