package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Storage backends for the client key/value store.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all configuration for the storefront core.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Local HTTP API
	HTTPPort   int    `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`
	CORSOrigin string `env:"STOREFRONT_CORS_ORIGIN" envDefault:"*"`

	// Storefront backend
	APIURL string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:8000/api"`

	// Client storage namespace and backend
	ClientID string `env:"STOREFRONT_CLIENT_ID" envDefault:"default"`
	Storage  string `env:"STOREFRONT_STORAGE" envDefault:"memory"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	RedisSlowThresholdMS int `env:"REDIS_SLOW_THRESHOLD_MS" envDefault:"100"`

	// Outbound HTTP client
	HTTPClientTimeout   int     `env:"HTTP_CLIENT_TIMEOUT_SECONDS" envDefault:"30"`
	HTTPClientRateLimit float64 `env:"HTTP_CLIENT_RATE_LIMIT" envDefault:"0"`
	HTTPClientBurst     int     `env:"HTTP_CLIENT_BURST" envDefault:"5"`

	// Circuit breaker settings for backend calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Pricing
	TaxRate                   string `env:"TAX_RATE" envDefault:"0.19"`
	WholesalerDefaultDiscount string `env:"WHOLESALER_DEFAULT_DISCOUNT" envDefault:"15"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	Tracing tracing.Config
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

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.APIURL == "" {
		return fmt.Errorf("STOREFRONT_API_URL is required")
	}
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid STOREFRONT_API_URL %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("STOREFRONT_API_URL must be http or https, got %q", u.Scheme)
	}
	if c.ClientID == "" {
		return fmt.Errorf("STOREFRONT_CLIENT_ID is required")
	}
	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STOREFRONT_STORAGE=redis")
		}
	default:
		return fmt.Errorf("STOREFRONT_STORAGE must be %q or %q, got %q", StorageMemory, StorageRedis, c.Storage)
	}
	if c.RedisSlowThresholdMS < 0 {
		return fmt.Errorf("REDIS_SLOW_THRESHOLD_MS must not be negative, got %d", c.RedisSlowThresholdMS)
	}
	if c.HTTPClientTimeout < 1 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT_SECONDS must be positive, got %d", c.HTTPClientTimeout)
	}
	if c.HTTPClientRateLimit < 0 {
		return fmt.Errorf("HTTP_CLIENT_RATE_LIMIT must not be negative, got %f", c.HTTPClientRateLimit)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %f", c.CBFailureRatio)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid TAX_RATE %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE must be in [0, 1), got %s", c.TaxRate)
	}
	discount, err := decimal.NewFromString(c.WholesalerDefaultDiscount)
	if err != nil {
		return fmt.Errorf("invalid WHOLESALER_DEFAULT_DISCOUNT %q: %w", c.WholesalerDefaultDiscount, err)
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("WHOLESALER_DEFAULT_DISCOUNT must be a percentage, got %s", c.WholesalerDefaultDiscount)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}

// Tax returns the configured tax rate. Load has already validated it.
func (c *Config) Tax() decimal.Decimal {
	return decimal.RequireFromString(c.TaxRate)
}

// WholesalerDiscount returns the default wholesaler discount percentage.
func (c *Config) WholesalerDiscount() decimal.Decimal {
	return decimal.RequireFromString(c.WholesalerDefaultDiscount)
}

// RedisSlowThreshold returns the duration above which a Redis command is
// logged as slow. Zero disables the warning.
func (c *Config) RedisSlowThreshold() time.Duration {
	return time.Duration(c.RedisSlowThresholdMS) * time.Millisecond
}

// HTTPClient returns the outbound client settings.
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = time.Duration(c.HTTPClientTimeout) * time.Second
	cfg.RateLimit = c.HTTPClientRateLimit
	cfg.Burst = c.HTTPClientBurst
	return cfg
}

// CircuitBreaker returns the breaker settings for the named backend.
func (c *Config) CircuitBreaker(name string) httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBInterval) * time.Second,
		Timeout:      time.Duration(c.CBTimeout) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}
