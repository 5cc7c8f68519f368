package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

// DefaultEndpoint is used when no API URL is configured.
const DefaultEndpoint = "https://demo.saleor.io/graphql/"

const backendName = "saleor"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_graphql_requests_total",
			Help: "GraphQL operations issued, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_graphql_request_duration_seconds",
			Help:    "GraphQL round-trip latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Request is the JSON body of a GraphQL POST.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Error is one entry of a response's top-level errors list.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Errors is returned when the backend answered with a non-empty top-level
// errors list. Data decoded alongside, if any, is still written to out.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// First returns the first error message, or "" when it has none.
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors Errors          `json:"errors"`
}

// Client posts GraphQL operations through an injected Doer. Which Doer
// decides whether requests carry the session's bearer token.
type Client struct {
	endpoint string
	doer     httpclient.Doer
	logger   *slog.Logger
}

// New creates a client for endpoint. An empty endpoint selects DefaultEndpoint.
func New(endpoint string, doer httpclient.Doer, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, doer: doer, logger: logger}
}

// Endpoint returns the URL operations are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// WithDoer returns a copy of the client that sends through d.
func (c *Client) WithDoer(d httpclient.Doer) *Client {
	cpy := *c
	cpy.doer = d
	return &cpy
}

// NewHTTPRequest builds the POST for req. The body is replayable so the
// request can be re-issued by retrying Doers.
func (c *Client) NewHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// Do executes req and decodes its data into out (which may be nil).
//
// Transport failures come back as apperrors.ErrNetwork, a top-level errors
// list as Errors, and non-JSON error statuses as the matching AppError.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	op := req.OperationName
	if op == "" {
		op = "anonymous"
	}
	start := time.Now()

	ctx, span := tracing.Tracer("graphql").Start(ctx, "graphql."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("graphql.operation.name", op)),
	)
	defer func() {
		tracing.Fail(span, err)
		span.End()
		requestsTotal.WithLabelValues(op, outcome(err)).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	httpReq, err := c.NewHTTPRequest(ctx, req)
	if err != nil {
		return err
	}
	tracing.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.doer.Do(ctx, httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return c.decode(ctx, op, resp, out)
}

func (c *Client) decode(ctx context.Context, op string, resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return apperrors.Network(fmt.Errorf("read %s response: %w", op, err))
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && len(env.Errors) > 0 {
			return env.Errors
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return httpclient.ParseResponseError(resp, backendName)
	}
	if decodeErr != nil {
		logger.WithContext(ctx, c.logger).WarnContext(ctx, "graphql response is not JSON",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
		)
		return apperrors.Upstream(resp.StatusCode, fmt.Sprintf("%s: invalid JSON response", backendName))
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.Upstream(resp.StatusCode, fmt.Sprintf("%s: decode %s data: %v", backendName, op, err))
		}
	}
	if len(env.Errors) > 0 {
		return env.Errors
	}
	return nil
}

func classifyTransport(err error) error {
	var serverErr *httpclient.ServerError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Network(err)
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: backendName + " is temporarily unavailable",
			Status:  http.StatusServiceUnavailable,
			Err:     errors.Join(apperrors.ErrServiceUnavail, err),
		}
	case errors.As(err, &serverErr):
		return apperrors.Upstream(serverErr.Status, fmt.Sprintf("%s: %s", backendName, http.StatusText(serverErr.Status)))
	default:
		return apperrors.Network(err)
	}
}

func outcome(err error) string {
	var gqlErrs Errors
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &gqlErrs):
		return "graphql_error"
	case errors.Is(err, apperrors.ErrNetwork):
		return "network_error"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
