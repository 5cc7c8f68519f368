package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/graphql"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storage"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

const slowStorageOp = 100 * time.Millisecond

// App wires together all dependencies and runs the storefront client.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	session        *session.Manager
	cart           *cart.Store
	unsubscribe    func()
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tcfg := tracing.DefaultConfig("storefront")
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tracerShutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	// Secure storage.
	store, rdb, err := newStorage(ctx, cfg, log, healthHandler)
	if err != nil {
		return nil, err
	}

	// Backend transport: retrying client, optionally behind a circuit breaker.
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.HTTPTimeout
	hcfg.MaxRetries = cfg.HTTPMaxRetries
	var base httpclient.Doer = httpclient.New(hcfg)
	if cfg.BreakerEnabled {
		bcfg := httpclient.DefaultCircuitBreakerConfig("saleor")
		bcfg.Timeout = cfg.BreakerTimeout
		bcfg.FailureRatio = cfg.BreakerFailureRatio
		bcfg.MinRequests = cfg.BreakerMinRequests
		breaker := httpclient.NewCircuitBreakerClient(base, bcfg, log)
		base = breaker
		healthHandler.RegisterNonCritical("saleor", breaker.Check)
	}

	// Build the dependency graph.
	sessions := session.NewManager(session.Config{
		Endpoint:          cfg.APIURL,
		SignupRedirectURL: cfg.SignupRedirectURL,
		RefreshOnExpiry:   cfg.RefreshOnExpiry,
		LoginRate:         cfg.LoginRate,
		LoginBurst:        cfg.LoginBurst,
	}, store, base, log)
	gql := graphql.New(cfg.APIURL, sessions.AuthDoer(), log)
	products := catalog.NewService(gql, cfg.Channel, log)
	cartStore := cart.NewStore(log)
	unsubscribe := cartStore.Subscribe(func(s cart.Snapshot) {
		log.Debug("cart changed",
			slog.Uint64("version", s.Version),
			slog.Int("lines", len(s.Items)),
			slog.Int("total_items", s.TotalItems),
			slog.Int64("total_price", s.TotalPrice),
			slog.String("currency", s.Currency),
		)
	})

	// A persisted session from a previous run gets its identity back.
	sessions.RefreshUser(ctx)
	if u, ok := sessions.CurrentUser(); ok {
		log.Info("restored session", slog.String("user_id", u.ID))
	}

	opts := handler.Options{
		CORSOrigins:   cfg.CORSOrigins,
		CatalogMaxAge: cfg.CatalogCacheSecs,
	}
	if cfg.PprofEnabled {
		opts.PprofCIDRs = cfg.PprofAllow
	}
	router := handler.NewRouter(sessions, cartStore, products, healthHandler, log, opts)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         log,
		rdb:            rdb,
		session:        sessions,
		cart:           cartStore,
		unsubscribe:    unsubscribe,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// newStorage builds the token store for cfg.StorageBackend and registers its
// health check. The redis client is returned so Shutdown can close it.
func newStorage(ctx context.Context, cfg *config.Config, log *slog.Logger, hh *health.Handler) (storage.SecureStorage, *redis.Client, error) {
	var (
		store storage.SecureStorage
		rdb   *redis.Client
	)

	switch cfg.StorageBackend {
	case config.StorageRedis:
		rcfg := database.DefaultRedisConfig()
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPass
		rcfg.DB = cfg.RedisDB

		var err error
		rdb, err = database.NewRedisClient(ctx, rcfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, "storefront"); err != nil {
			log.Warn("redis pool metrics not registered", logger.Err(err))
		}
		database.SetSlowOpLogging(slowStorageOp, log)

		rs := redisstore.NewStorage(rdb)
		hh.RegisterCritical("storage", rs.Ping)
		store = rs
	default:
		mem := storage.NewMemory()
		hh.RegisterCritical("storage", mem.Ping)
		store = mem
		log.Warn("using in-memory token storage; sessions end with the process")
	}

	key, err := cfg.SealKeyBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("seal key: %w", err)
	}
	if key != nil {
		sealed, err := storage.NewSealed(store, key)
		if err != nil {
			return nil, nil, fmt.Errorf("seal storage: %w", err)
		}
		store = sealed
	}
	return store, rdb, nil
}

// Handler returns the local API router.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("backend", a.session.Endpoint()),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. Tokens stay in storage so the
// next run resumes the session.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", logger.Err(err))
	}

	a.unsubscribe()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", logger.Err(err))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", logger.Err(err))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
