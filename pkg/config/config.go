package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	API     APIConfig
	Stream  StreamConfig
	Pricing PricingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	if cfg.Stream.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("stream reconnect attempts must be non-negative")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env       string `envconfig:"SLICELINE_APP_ENV" default:"development"`
	LogLevel  string `envconfig:"SLICELINE_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"SLICELINE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Storage backends supported by the cart persistence adapter.
const (
	StorageBackendSQLite = "sqlite"
	StorageBackendRedis  = "redis"
)

type StorageConfig struct {
	Backend string `envconfig:"SLICELINE_STORAGE_BACKEND" default:"sqlite"`
	Path    string `envconfig:"SLICELINE_STORAGE_PATH" default:"sliceline.db"`
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageBackendSQLite, StorageBackendRedis:
		return nil
	}
	return fmt.Errorf("unknown storage backend %q", s.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"SLICELINE_REDIS_URL"`
	Address      string        `envconfig:"SLICELINE_REDIS_ADDR"`
	Password     string        `envconfig:"SLICELINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SLICELINE_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"SLICELINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SLICELINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SLICELINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type APIConfig struct {
	BaseURL string        `envconfig:"SLICELINE_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"SLICELINE_API_TIMEOUT" default:"10s"`
}

type StreamConfig struct {
	// URL of the order status websocket endpoint. Empty switches the tracker
	// to the polling fallback.
	URL                  string        `envconfig:"SLICELINE_STREAM_URL"`
	ReconnectDelay       time.Duration `envconfig:"SLICELINE_STREAM_RECONNECT_DELAY" default:"5s"`
	MaxReconnectAttempts int           `envconfig:"SLICELINE_STREAM_MAX_RECONNECT_ATTEMPTS" default:"5"`
	PollInterval         time.Duration `envconfig:"SLICELINE_STREAM_POLL_INTERVAL" default:"15s"`
}

type PricingConfig struct {
	// GSTRate is a decimal fraction, e.g. "0.10" for 10%. The business rule
	// moved between 10% and 5% over the storefront's history, so it stays
	// configurable.
	GSTRate string `envconfig:"SLICELINE_PRICING_GST_RATE" default:"0.10"`
	// RoundPlaces controls the round-off line: 0 rounds totals to whole
	// currency units, 2 to cents.
	RoundPlaces int32 `envconfig:"SLICELINE_PRICING_ROUND_PLACES" default:"0"`
}

func (p PricingConfig) validate() error {
	rate, err := decimal.NewFromString(p.GSTRate)
	if err != nil {
		return fmt.Errorf("parsing gst rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("gst rate %s out of range", p.GSTRate)
	}
	if p.RoundPlaces < 0 || p.RoundPlaces > 4 {
		return fmt.Errorf("round places %d out of range", p.RoundPlaces)
	}
	return nil
}

// GSTRateDecimal returns the configured tax rate. validate guarantees it parses.
func (p PricingConfig) GSTRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(p.GSTRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}
