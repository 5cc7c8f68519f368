package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/tracing"
)

var slowOpCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowOpLogging configures slow command detection. Commands exceeding the
// threshold are logged as warnings. A zero threshold disables it.
func SetSlowOpLogging(threshold time.Duration, logger *slog.Logger) {
	slowOpCfg.mu.Lock()
	defer slowOpCfg.mu.Unlock()
	slowOpCfg.threshold = threshold
	slowOpCfg.logger = logger
}

func getSlowOpConfig() (time.Duration, *slog.Logger) {
	slowOpCfg.mu.RLock()
	defer slowOpCfg.mu.RUnlock()
	return slowOpCfg.threshold, slowOpCfg.logger
}

// TraceCommand starts a client span for one key-value command. Call the
// returned function with the command's error when it completes:
//
//	ctx, end := database.TraceCommand(ctx, "redis", "GET", key)
//	defer func() { end(err) }()
func TraceCommand(ctx context.Context, system, command, key string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.Tracer("database").Start(ctx, system+"."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", command),
			attribute.String("db.key", key),
		),
	)

	return ctx, func(err error) {
		tracing.Fail(span, err)
		span.End()

		threshold, logger := getSlowOpConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= threshold {
			attrs := []any{
				slog.String("system", system),
				slog.String("command", command),
				slog.String("key", key),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.WarnContext(ctx, "slow storage command", attrs...)
		}
	}
}
