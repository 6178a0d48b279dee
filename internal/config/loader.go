package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration in three layers: built-in defaults, the
// TOML file at path (skipped when path is empty or missing), and
// finally FORECAST_* environment variables. A .env file in the working
// directory is loaded into the environment first if present.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr("FORECAST_MODE", &cfg.Mode)
	setStr("FORECAST_LOG_LEVEL", &cfg.LogLevel)
	setStr("FORECAST_ASSET", &cfg.Asset.Symbol)

	setStr("FORECAST_COINGECKO_URL", &cfg.MarketData.CoinGeckoURL)
	setStr("FORECAST_COINGECKO_API_KEY", &cfg.MarketData.CoinGeckoAPIKey)
	setStr("FORECAST_FEARGREED_URL", &cfg.MarketData.FearGreedURL)
	setStr("FORECAST_COINBASE_URL", &cfg.MarketData.CoinbaseURL)
	setBool("FORECAST_SENTIMENT_ENABLED", &cfg.MarketData.SentimentOn)
	setBool("FORECAST_ORDERBOOK_ENABLED", &cfg.MarketData.OrderbookOn)

	setBool("FORECAST_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setStr("FORECAST_POSTGRES_DSN", &cfg.Postgres.DSN)
	setStr("FORECAST_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("FORECAST_POSTGRES_PORT", &cfg.Postgres.Port)
	setStr("FORECAST_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setStr("FORECAST_POSTGRES_USER", &cfg.Postgres.User)
	setStr("FORECAST_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setStr("FORECAST_POSTGRES_SSL_MODE", &cfg.Postgres.SSLMode)
	setInt("FORECAST_POSTGRES_POOL_MAX_CONNS", &cfg.Postgres.PoolMaxConns)
	setInt("FORECAST_POSTGRES_POOL_MIN_CONNS", &cfg.Postgres.PoolMinConns)
	setBool("FORECAST_POSTGRES_RUN_MIGRATIONS", &cfg.Postgres.RunMigrations)

	setBool("FORECAST_REDIS_ENABLED", &cfg.Redis.Enabled)
	setStr("FORECAST_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("FORECAST_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("FORECAST_REDIS_DB", &cfg.Redis.DB)
	setInt("FORECAST_REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	setInt("FORECAST_REDIS_MAX_RETRIES", &cfg.Redis.MaxRetries)
	setBool("FORECAST_REDIS_TLS_ENABLED", &cfg.Redis.TLSEnabled)

	setBool("FORECAST_S3_ENABLED", &cfg.S3.Enabled)
	setStr("FORECAST_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("FORECAST_S3_REGION", &cfg.S3.Region)
	setStr("FORECAST_S3_BUCKET", &cfg.S3.Bucket)
	setStr("FORECAST_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("FORECAST_S3_SECRET_KEY", &cfg.S3.SecretKey)
	setBool("FORECAST_S3_USE_SSL", &cfg.S3.UseSSL)
	setBool("FORECAST_S3_FORCE_PATH_STYLE", &cfg.S3.ForcePathStyle)

	setDuration("FORECAST_REFRESH_INTERVAL", &cfg.Analysis.RefreshInterval)
	setBool("FORECAST_USE_ENSEMBLE", &cfg.Analysis.UseEnsemble)

	setBool("FORECAST_TRACKER_ENABLED", &cfg.Tracker.Enabled)
	setDuration("FORECAST_SWEEP_INTERVAL", &cfg.Tracker.SweepInterval)
	setDuration("FORECAST_ARCHIVE_INTERVAL", &cfg.Tracker.ArchiveInterval)
	setInt("FORECAST_ARCHIVE_RETENTION_DAYS", &cfg.Tracker.ArchiveRetentionDays)

	setBool("FORECAST_SERVER_ENABLED", &cfg.Server.Enabled)
	setInt("FORECAST_SERVER_PORT", &cfg.Server.Port)
	setStringSlice("FORECAST_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	setStr("FORECAST_API_KEY", &cfg.Server.APIKey)
}

func setStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
