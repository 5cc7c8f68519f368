package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	userIDKey        contextKey = "user_id"
	loggerKey        contextKey = "logger"
)

// New creates a new structured logger with the given component name and level.
func New(component, level string) *slog.Logger {
	return NewWithWriter(component, level, os.Stdout)
}

// NewWithWriter creates a new structured logger writing to the given writer.
func NewWithWriter(component, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})

	return slog.New(handler).With(
		slog.String("service", component),
	)
}

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Token returns an attribute carrying a short fingerprint of a credential.
// The credential itself never reaches the log output.
func Token(key, value string) slog.Attr {
	if value == "" {
		return slog.String(key, "")
	}
	sum := sha256.Sum256([]byte(value))
	return slog.String(key, "sha256:"+hex.EncodeToString(sum[:4]))
}

// Err returns the conventional error attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a new context with the signed-in user's ID set for logging.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the user ID stored by the logger package from context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// NewContext returns a new context with the given logger stored in it.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger stored in context.
// Returns slog.Default() if no logger is stored.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext returns a logger with context-derived fields (correlation_id, user_id, trace_id, span_id).
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := CorrelationIDFromContext(ctx); id != "" {
		l = l.With(slog.String("correlation_id", id))
	}

	if id := UserIDFromContext(ctx); id != "" {
		l = l.With(slog.String("user_id", id))
	}

	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		l = l.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}

	return l
}
