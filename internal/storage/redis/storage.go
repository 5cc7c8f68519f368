package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "storefront:"

// Storage implements storage.SecureStorage on Redis. Use it wrapped in
// storage.Sealed unless the instance is private to this process.
type Storage struct {
	client *redis.Client
}

// NewStorage creates a Redis-backed secure storage.
func NewStorage(client *redis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	ctx, end := database.TraceCommand(ctx, "redis", "GET", keyPrefix+key)
	defer func() { end(err) }()

	value, err = s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Storage("read", fmt.Errorf("redis get %s: %w", key, err))
	}
	return value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceCommand(ctx, "redis", "SET", keyPrefix+key)
	defer func() { end(err) }()

	if err = s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return apperrors.Storage("write", fmt.Errorf("redis set %s: %w", key, err))
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceCommand(ctx, "redis", "DEL", keyPrefix+key)
	defer func() { end(err) }()

	if err = s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return apperrors.Storage("remove", fmt.Errorf("redis del %s: %w", key, err))
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
