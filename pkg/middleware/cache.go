package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks successful GET responses as cacheable for maxAge seconds.
// Catalog reads are anonymous, so shared caches may keep them.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore forbids caching. Used on session and cart routes, whose responses
// describe one user's state.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
