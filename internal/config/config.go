package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/bookstore/pkg/config"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort       int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CatalogMaxAge  time.Duration `env:"CATALOG_CACHE_MAX_AGE" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PprofCIDRs     []string      `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Collaborators
	BooksAPIURL     string        `env:"BOOKS_API_URL" envDefault:"http://localhost:8000"`
	AuthAPIURL      string        `env:"AUTH_API_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Session
	CookieName       string        `env:"SESSION_COOKIE_NAME" envDefault:"storefront_session"`
	CookieSecure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionIdle      time.Duration `env:"SESSION_IDLE" envDefault:"30m"`
	RehydrateTimeout time.Duration `env:"REHYDRATE_TIMEOUT" envDefault:"10s"`

	// Login and register throttling, per client IP
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	// Store
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"redis"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"true"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

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
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	for name, raw := range map[string]string{"BOOKS_API_URL": c.BooksAPIURL, "AUTH_API_URL": c.AuthAPIURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 || c.SessionIdle <= 0 {
		return errors.New("SESSION_TTL and SESSION_IDLE must be positive")
	}
	switch c.StoreBackend {
	case StoreRedis:
		if c.RedisPort < 1 || c.RedisPort > 65535 {
			return fmt.Errorf("invalid REDIS_PORT: %d", c.RedisPort)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreRedis, StoreMemory, c.StoreBackend)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst < 1 {
		return errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTELSampleRate)
	}
	for _, cidr := range c.PprofCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("PPROF_ALLOWED_CIDRS: %w", err)
		}
	}
	return nil
}
