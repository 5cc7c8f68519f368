package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/utafrali/storefront/internal/storage"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Local UI API
	HTTPPort         int      `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`
	CORSOrigins      []string `env:"STOREFRONT_CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	CatalogCacheSecs int      `env:"STOREFRONT_CATALOG_CACHE_SECONDS" envDefault:"60"`
	PprofEnabled     bool     `env:"STOREFRONT_PPROF_ENABLED" envDefault:"false"`
	PprofAllow       []string `env:"STOREFRONT_PPROF_ALLOW" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// Backend
	APIURL            string `env:"STOREFRONT_API_URL" envDefault:"https://demo.saleor.io/graphql/"`
	Channel           string `env:"STOREFRONT_CHANNEL" envDefault:"default-channel"`
	SignupRedirectURL string `env:"STOREFRONT_SIGNUP_REDIRECT_URL" envDefault:"app://account"`
	RefreshOnExpiry   bool   `env:"STOREFRONT_REFRESH_ON_EXPIRY" envDefault:"false"`

	// HTTP client
	HTTPTimeout    time.Duration `env:"STOREFRONT_HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries int           `env:"STOREFRONT_HTTP_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker
	BreakerEnabled      bool          `env:"STOREFRONT_BREAKER_ENABLED" envDefault:"true"`
	BreakerTimeout      time.Duration `env:"STOREFRONT_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"STOREFRONT_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"STOREFRONT_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Login throttle, attempts per second
	LoginRate  float64 `env:"STOREFRONT_LOGIN_RATE" envDefault:"0.2"`
	LoginBurst int     `env:"STOREFRONT_LOGIN_BURST" envDefault:"5"`

	// Secure storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	SealKey        string `env:"STORAGE_SEAL_KEY" envDefault:""`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SealKeyBytes decodes STORAGE_SEAL_KEY; nil means sealing is off.
func (c *Config) SealKeyBytes() ([]byte, error) {
	if c.SealKey == "" {
		return nil, nil
	}
	return storage.ParseSealKey(c.SealKey)
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("STOREFRONT_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.Channel == "" {
		return fmt.Errorf("STOREFRONT_CHANNEL is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("STOREFRONT_HTTP_TIMEOUT must be positive")
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("STOREFRONT_HTTP_MAX_RETRIES must not be negative")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("STOREFRONT_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	if c.LoginRate < 0 {
		return fmt.Errorf("STOREFRONT_LOGIN_RATE must not be negative")
	}
	if c.CatalogCacheSecs < 0 {
		return fmt.Errorf("STOREFRONT_CATALOG_CACHE_SECONDS must not be negative")
	}
	switch c.StorageBackend {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMemory, StorageRedis, c.StorageBackend)
	}
	if _, err := c.SealKeyBytes(); err != nil {
		return fmt.Errorf("STORAGE_SEAL_KEY: %w", err)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}
