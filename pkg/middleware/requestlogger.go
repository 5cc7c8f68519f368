package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// UserIDFunc reports the ID of the signed-in storefront user, if any.
type UserIDFunc func(ctx context.Context) (string, bool)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, trace_id and span_id and stores it in the context for
// logger.FromContext. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger, currentUser UserIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if currentUser != nil {
				if id, ok := currentUser(ctx); ok && id != "" {
					ctx = logger.WithUserID(ctx, id)
				}
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
