package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/quantary/forecastbot/internal/blob/s3"
	"github.com/quantary/forecastbot/internal/cache/redis"
	"github.com/quantary/forecastbot/internal/config"
	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/platform/marketdata"
	"github.com/quantary/forecastbot/internal/predictor"
	"github.com/quantary/forecastbot/internal/store/memory"
	"github.com/quantary/forecastbot/internal/store/postgres"
	"github.com/quantary/forecastbot/internal/tracker"
)

// Dependencies bundles every domain-level dependency the application
// modes need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Persistence
	Store domain.PredictionStore

	// Caches and coordination (nil when Redis is disabled)
	PriceCache    domain.PriceCache
	AnalysisCache domain.AnalysisCache
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Market data
	History   domain.PriceHistorySource
	Oracle    domain.PriceOracle
	Sentiment domain.SentimentSource
	Orderbook domain.OrderbookSource

	// Engine
	Orchestrator *predictor.Orchestrator
	Tracker      *tracker.Tracker

	// Cold archive (nil unless S3 is enabled)
	Archiver *s3blob.Archiver
}

// needsPostgres reports whether the mode persists predictions.
func needsPostgres(mode string) bool {
	switch mode {
	case "full", "worker":
		return true
	default:
		return false
	}
}

// needsS3 reports whether the mode runs the archive sweep.
func needsS3(mode string) bool {
	switch mode {
	case "full", "worker":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependency implementations from the
// configuration and returns them with a cleanup function for
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Market data feeds ---
	gecko := marketdata.NewCoinGecko(cfg.MarketData.CoinGeckoURL, cfg.MarketData.CoinGeckoAPIKey)
	deps.History = gecko
	deps.Oracle = gecko
	if cfg.MarketData.SentimentOn {
		deps.Sentiment = marketdata.NewFearGreed(cfg.MarketData.FearGreedURL)
	}
	if cfg.MarketData.OrderbookOn {
		deps.Orderbook = marketdata.NewCoinbase(cfg.MarketData.CoinbaseURL)
	}

	// --- Prediction store ---
	if cfg.Postgres.Enabled && needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Store = postgres.NewPredictionStore(pgClient)
	} else {
		deps.Store = memory.NewPredictionStore()
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.AnalysisCache = redis.NewAnalysisCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient, logger)
	}

	// --- Engine ---
	ensemble := predictor.NewEnsemble(logger, cfg.Analysis.UseEnsemble)
	deps.Orchestrator = predictor.NewOrchestrator(deps.History, ensemble, logger)
	deps.Tracker = tracker.New(deps.Store, deps.Oracle, logger)

	// --- S3 cold archive ---
	if cfg.S3.Enabled && needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Store)
	}

	return deps, cleanup, nil
}
