package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var retriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_backend_retries_total",
		Help: "Backend requests retried by the HTTP client, by reason",
	},
	[]string{"reason"},
)

// Doer is the fetch primitive shared by the transport layers. Anything that can
// issue an *http.Request (the retrying client, the circuit breaker, the session's
// authenticated fetch) satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Do calls f(ctx, req).
func (f DoerFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// Config holds HTTP client configuration
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for a mobile-grade backend client.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    250 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 16,
	}
}

// Client wraps http.Client with retry logic and better defaults
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with retry and connection pooling
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return NewWithHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, cfg)
}

// NewWithHTTPClient builds a Client around a caller-supplied *http.Client.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	return &Client{httpClient: hc, config: cfg}
}

// Do executes req, retrying transport errors, 5xx responses (except 501) and
// 429. A Retry-After in seconds replaces the computed backoff, capped at
// RetryWaitMax. Requests with a body are replayed through req.GetBody, so
// callers must build them with http.NewRequest* over a bytes/strings reader.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var (
		resp       *http.Response
		err        error
		retryAfter time.Duration
	)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt, retryAfter)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			if req, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if isRetryableError(err) && attempt < c.config.MaxRetries {
				retriesTotal.WithLabelValues("transport").Inc()
				retryAfter = 0
				continue
			}
			return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
		}

		if reason, ok := retryableStatus(resp.StatusCode); ok && attempt < c.config.MaxRetries {
			retriesTotal.WithLabelValues(reason).Inc()
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return resp, err
}

// backoff returns the wait before the given retry attempt (1-based).
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, c.config.RetryWaitMax)
	}
	wait := c.config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if wait > c.config.RetryWaitMax {
		wait = c.config.RetryWaitMax
	}
	return addJitter(wait)
}

func retryableStatus(status int) (string, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return "throttled", true
	case status >= 500 && status != http.StatusNotImplemented:
		return "server_error", true
	default:
		return "", false
	}
}

// parseRetryAfter understands the delta-seconds form only; HTTP dates yield 0.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// rewind returns a shallow clone of req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// addJitter spreads retries by ±25% so parallel clients do not retry in lockstep.
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	quarter := int64(d) / 4
	if quarter == 0 {
		return d
	}
	return time.Duration(int64(d) - quarter + rand.Int64N(2*quarter+1))
}

// isRetryableError determines if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
