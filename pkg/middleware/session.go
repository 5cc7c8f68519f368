package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// AuthenticatedFunc reports whether the storefront currently holds an access token.
type AuthenticatedFunc func(ctx context.Context) bool

// RequireSession rejects requests with 401 while nobody is signed in.
func RequireSession(authenticated AuthenticatedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authenticated(r.Context()) {
				httputil.WriteError(w, r, apperrors.Unauthorized("sign in required"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
