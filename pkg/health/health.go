package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the JSON response returned by the health endpoint.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler provides HTTP health check endpoints.
type Handler struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

// NewHandler creates a new health check handler.
func NewHandler() *Handler {
	return &Handler{
		checks:  make(map[string]check),
		timeout: 5 * time.Second,
	}
}

// Register adds a named critical health checker.
func (h *Handler) Register(name string, checker Checker) {
	h.RegisterCritical(name, checker)
}

// RegisterCritical adds a checker whose failure makes the service unready.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.add(name, checker, true)
}

// RegisterNonCritical adds a checker whose failure only degrades the service.
// The storefront keeps serving the cart when the GraphQL backend is down.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.add(name, checker, false)
}

func (h *Handler) add(name string, fn Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// LivenessHandler returns a simple liveness check (always 200 if the process is running).
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs all registered checks concurrently and returns 200
// when every critical check passes (status "degraded" if a non-critical one
// failed) and 503 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		h.mu.RLock()
		checks := make(map[string]check, len(h.checks))
		for k, v := range h.checks {
			checks[k] = v
		}
		h.mu.RUnlock()

		results := make(map[string]CheckResult, len(checks))
		var (
			mu sync.Mutex
			g  errgroup.Group
		)
		for name, c := range checks {
			g.Go(func() error {
				res := CheckResult{Status: StatusUp, Critical: c.critical}
				if err := c.fn(ctx); err != nil {
					res.Status, res.Error = StatusDown, err.Error()
				}
				mu.Lock()
				results[name] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		overall := StatusUp
		for _, res := range results {
			switch {
			case res.Status == StatusUp:
			case res.Critical:
				overall = StatusDown
			case overall == StatusUp:
				overall = StatusDegraded
			}
		}

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, Response{
			Status:    overall,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
