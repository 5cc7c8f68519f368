package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Options tunes the router. Nil PprofCIDRs leaves /debug/pprof unmounted.
type Options struct {
	CORSOrigins   []string
	CatalogMaxAge int
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all local storefront API routes registered.
func NewRouter(
	sessions SessionService,
	store *cart.Store,
	products CatalogService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins...)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger, currentUserID(sessions)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if opts.PprofCIDRs != nil {
		middleware.RegisterPprof(r, opts.PprofCIDRs, logger)
	}

	sessionHandler := NewSessionHandler(sessions, logger)
	cartHandler := NewCartHandler(store, logger)
	catalogHandler := NewCatalogHandler(products, store, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/", sessionHandler.Get)
			r.Post("/login", sessionHandler.Login)
			r.Post("/signup", sessionHandler.Signup)
			r.Post("/logout", sessionHandler.Logout)
			r.With(middleware.RequireSession(sessions.IsAuthenticated)).
				Post("/refresh", sessionHandler.Refresh)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.CacheControl(opts.CatalogMaxAge)).Get("/", catalogHandler.ListProducts)
			r.With(middleware.CacheControl(opts.CatalogMaxAge)).Get("/{id}", catalogHandler.GetProduct)
			r.With(middleware.NoStore).Post("/{id}/cart", catalogHandler.AddToCart)
		})
	})

	return r
}
