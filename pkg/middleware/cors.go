package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls which web front-ends may call the local API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins; "*" allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// MaxAge is how long (in seconds) preflight results can be cached.
	MaxAge int
}

// DefaultCORSConfig returns the configuration used when only origins are set.
func DefaultCORSConfig(origins ...string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", CorrelationHeader},
		ExposedHeaders: []string{CorrelationHeader},
		MaxAge:         600,
	}
}

// CORS answers preflight requests and decorates responses for allowed origins.
// Credentials are never allowed; the session lives server-side.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowAny := false
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAny = true
		}
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			_, listed := origins[origin]
			if !allowAny && !listed {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if allowAny {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
