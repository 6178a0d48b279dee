// Package config defines the top-level configuration for the forecast
// engine and its validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML
// file and then optionally overridden by FORECAST_* environment
// variables.
type Config struct {
	Asset      AssetConfig      `toml:"asset"`
	MarketData MarketDataConfig `toml:"marketdata"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// AssetConfig names the instrument the engine runs against.
type AssetConfig struct {
	Symbol string `toml:"symbol"`
}

// MarketDataConfig holds the upstream feed endpoints. Empty URLs fall
// back to the public production endpoints.
type MarketDataConfig struct {
	CoinGeckoURL    string `toml:"coingecko_url"`
	CoinGeckoAPIKey string `toml:"coingecko_api_key"`
	FearGreedURL    string `toml:"feargreed_url"`
	CoinbaseURL     string `toml:"coinbase_url"`
	SentimentOn     bool   `toml:"sentiment_enabled"`
	OrderbookOn     bool   `toml:"orderbook_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	Enabled       bool   `toml:"enabled"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the cold
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AnalysisConfig controls the refresh loop and the ensemble.
type AnalysisConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	UseEnsemble     bool     `toml:"use_ensemble"`
}

// TrackerConfig controls prediction recording, the resolution sweep
// and cold archival.
type TrackerConfig struct {
	Enabled              bool     `toml:"enabled"`
	SweepInterval        duration `toml:"sweep_interval"`
	ArchiveInterval      duration `toml:"archive_interval"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// duration wraps time.Duration so TOML can decode "30s" style values.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

var validModes = map[string]bool{
	"full":   true, // workers + API
	"worker": true, // refresh and sweep loops only
	"api":    true, // HTTP tier only, reads the shared cache
	"once":   true, // single refresh to stdout, then exit
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration used when fields are
// absent from the TOML file.
func Defaults() Config {
	return Config{
		Asset: AssetConfig{Symbol: "BTC"},
		MarketData: MarketDataConfig{
			SentimentOn: true,
			OrderbookOn: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "forecastbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
			Enabled:       true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "forecastbot-archive",
			ForcePathStyle: true,
		},
		Analysis: AnalysisConfig{
			RefreshInterval: duration{15 * time.Minute},
			UseEnsemble:     true,
		},
		Tracker: TrackerConfig{
			Enabled:              true,
			SweepInterval:        duration{5 * time.Minute},
			ArchiveInterval:      duration{24 * time.Hour},
			ArchiveRetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Validate collects every configuration problem instead of stopping at
// the first.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, worker, api, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Asset.Symbol) == "" {
		errs = append(errs, "asset: symbol must not be empty")
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port %d is out of range", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when redis is enabled")
	}
	// The API tier has no in-process refresher, so it needs the shared
	// cache to see snapshots at all.
	if strings.ToLower(c.Mode) == "api" && !c.Redis.Enabled {
		errs = append(errs, "redis: must be enabled in api mode")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when s3 is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when s3 is enabled")
		}
	}

	if c.Analysis.RefreshInterval.Duration < time.Minute {
		errs = append(errs, "analysis: refresh_interval must be at least 1m")
	}
	if c.Tracker.Enabled && c.Tracker.SweepInterval.Duration < time.Minute {
		errs = append(errs, "tracker: sweep_interval must be at least 1m")
	}
	if c.Tracker.ArchiveRetentionDays < 0 {
		errs = append(errs, "tracker: archive_retention_days must not be negative")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d is out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
