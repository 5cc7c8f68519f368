package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger.
	log := logger.New("storefront", cfg.LogLevel)
	log.Info("starting storefront",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("api_url", cfg.APIURL),
		slog.String("storage", cfg.StorageBackend),
	)

	// Create the application with all dependencies wired.
	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("storefront stopped")
	return nil
}
