package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultConnectAttempts = 3
	defaultConnectBaseWait = 500 * time.Millisecond
	connectJitterFraction  = 0.25
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// DefaultRedisConfig returns sensible defaults for Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    8,
		DialTimeout: 5 * time.Second,
	}
}

// connectBackoff returns the wait before retry attempt n (0-indexed) with
// ±25% jitter. Base delays: 500ms, 1s, 2s.
func connectBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultConnectBaseWait << attempt
	jitter := time.Duration(float64(base) * connectJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- retry jitter
	return base + jitter
}

// NewRedisClient creates a Redis client and pings it, retrying a few times so
// the storefront survives Redis starting alongside it. logger may be nil.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	var lastErr error
	for attempt := 0; attempt < defaultConnectAttempts; attempt++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		if attempt == defaultConnectAttempts-1 {
			break
		}
		wait := connectBackoff(attempt)
		if logger != nil {
			logger.Warn("redis ping failed, retrying",
				slog.String("addr", cfg.Addr),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("ping redis after %d attempts: %w", defaultConnectAttempts, lastErr)
}
