package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, "https://demo.saleor.io/graphql/", cfg.APIURL)
	assert.Equal(t, "default-channel", cfg.Channel)
	assert.Equal(t, "app://account", cfg.SignupRedirectURL)
	assert.False(t, cfg.RefreshOnExpiry)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, []string{"127.0.0.1/32", "::1/128"}, cfg.PprofAllow)

	key, err := cfg.SealKeyBytes()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid HTTP port")
}

func TestLoad_InvalidAPIURL(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "demo.saleor.io/graphql/")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "STOREFRONT_API_URL")
}

func TestLoad_InvalidStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "keychain")

	_, err := Load()

	assert.ErrorContains(t, err, "STORAGE_BACKEND")
}

func TestLoad_SealKey(t *testing.T) {
	t.Setenv("STORAGE_SEAL_KEY", strings.Repeat("ab", 32))

	cfg, err := Load()
	require.NoError(t, err)

	key, err := cfg.SealKeyBytes()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestLoad_ShortSealKey(t *testing.T) {
	t.Setenv("STORAGE_SEAL_KEY", "abcd")

	_, err := Load()

	assert.ErrorContains(t, err, "STORAGE_SEAL_KEY")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_InvalidBreakerRatio(t *testing.T) {
	t.Setenv("STOREFRONT_BREAKER_FAILURE_RATIO", "0")

	_, err := Load()

	assert.ErrorContains(t, err, "STOREFRONT_BREAKER_FAILURE_RATIO")
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("STOREFRONT_REFRESH_ON_EXPIRY", "true")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("STOREFRONT_CORS_ORIGINS", "app://shell,http://localhost:5173")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.RefreshOnExpiry)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, []string{"app://shell", "http://localhost:5173"}, cfg.CORSOrigins)
}
