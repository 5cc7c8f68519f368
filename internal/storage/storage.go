package storage

import (
	"context"
	"sync"
)

// Token storage keys.
const (
	AccessTokenKey  = "saleor_access_token"
	RefreshTokenKey = "saleor_refresh_token"
)

// SecureStorage persists small secrets across process restarts. A missing key
// is not an error: GetItem reports ok=false and RemoveItem succeeds.
type SecureStorage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Memory is a process-local SecureStorage. Values do not survive a restart.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Ping always succeeds; it lets Memory stand in wherever a health check is registered.
func (m *Memory) Ping(context.Context) error { return nil }
