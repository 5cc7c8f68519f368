package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// MaxRequests is the maximum number of requests allowed in the half-open state.
	// 0 means 1 request is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns sensible defaults for a circuit breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var (
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	circuitBreakerRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Requests rejected without reaching the backend because the breaker was open",
		},
		[]string{"name"},
	)
)

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open and rejects the request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient wraps a Doer with circuit breaker protection.
// 4xx responses (including 401) pass through untouched and do not count as
// failures; only transport errors and 5xx responses do.
type CircuitBreakerClient struct {
	next     Doer
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

// NewCircuitBreakerClient wraps an existing Doer with a circuit breaker.
func NewCircuitBreakerClient(next Doer, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cbCfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cbCfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not evidence that the backend is unhealthy.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	circuitBreakerState.WithLabelValues(cbCfg.Name).Set(0)

	return &CircuitBreakerClient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cbCfg.Name,
	}
}

// Do executes an HTTP request through the circuit breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.next.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			if readErr != nil {
				body = []byte{}
			}
			_ = resp.Body.Close()
			return nil, &ServerError{Status: resp.StatusCode, Body: string(body)}
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Half-open and already probing: report it the same way as open.
		err = fmt.Errorf("%w (half-open probe in flight)", ErrCircuitOpen)
	}
	if errors.Is(err, ErrCircuitOpen) {
		circuitBreakerRejectedTotal.WithLabelValues(c.name).Inc()
		c.logger.DebugContext(ctx, "request rejected by open circuit",
			slog.String("breaker", c.name),
			slog.String("url", req.URL.Redacted()),
		)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

// Check is a health.Checker that fails while the breaker is open, so
// readiness reports the backend as degraded without sending it traffic.
func (c *CircuitBreakerClient) Check(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	}
	return nil
}

// ServerError is returned by the breaker for 5xx responses; the body has
// already been drained and closed.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Body)
}
