package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
)

// RegisterPprof mounts /debug/pprof behind an IP allowlist.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.HandleFunc("/debug/pprof/*", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	})
}

// IPAllowlist rejects requests whose remote address falls outside cidrs.
// Invalid CIDRs are logged and skipped.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("invalid allowlist CIDR, skipping",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		nets = append(nets, ipNet)
	}

	allowed := func(remote string) bool {
		host, _, err := net.SplitHostPort(remote)
		if err != nil {
			host = remote
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return false
		}
		for _, n := range nets {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r.RemoteAddr) {
				logger.WarnContext(r.Context(), "access denied by IP allowlist",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "access restricted by IP allowlist"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
