// Package analysis runs one full read of the engine: forecasts for
// every horizon, threshold markets per horizon and the blended overall
// signal, published as a single snapshot.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/market"
	"github.com/quantary/forecastbot/internal/predictor"
	"github.com/quantary/forecastbot/internal/signal"
)

// ChannelAnalysis is the bus channel snapshots are announced on.
const ChannelAnalysis = "analysis"

// Service assembles analysis snapshots. The sentiment and orderbook
// sources are optional; when absent their signal components are
// simply dropped.
type Service struct {
	asset      string
	history    domain.PriceHistorySource
	orch       *predictor.Orchestrator
	markets    *market.Generator
	technical  *signal.Technical
	aggregator *signal.Aggregator
	sentiment  domain.SentimentSource
	orderbook  domain.OrderbookSource

	holder *Holder
	cache  domain.AnalysisCache
	prices domain.PriceCache
	bus    domain.SignalBus

	now func() time.Time
	log *slog.Logger
}

// Deps bundles the collaborators for NewService. Holder is required;
// Cache, Prices, Bus, Sentiment and Orderbook may be nil.
type Deps struct {
	Asset     string
	History   domain.PriceHistorySource
	Orch      *predictor.Orchestrator
	Holder    *Holder
	Cache     domain.AnalysisCache
	Prices    domain.PriceCache
	Bus       domain.SignalBus
	Sentiment domain.SentimentSource
	Orderbook domain.OrderbookSource
}

func NewService(d Deps, log *slog.Logger) *Service {
	return &Service{
		asset:      d.Asset,
		history:    d.History,
		orch:       d.Orch,
		markets:    market.NewGenerator(),
		technical:  signal.NewTechnical(),
		aggregator: signal.NewAggregator(),
		sentiment:  d.Sentiment,
		orderbook:  d.Orderbook,
		holder:     d.Holder,
		cache:      d.Cache,
		prices:     d.Prices,
		bus:        d.Bus,
		now:        time.Now,
		log:        log.With(slog.String("component", "analysis")),
	}
}

// Refresh builds a fresh snapshot, stores it in the holder, mirrors it
// to the cache and announces it on the bus. Failures in the optional
// inputs degrade the snapshot instead of failing the refresh.
func (s *Service) Refresh(ctx context.Context) (domain.Analysis, error) {
	forecasts, err := s.orch.PredictAll(ctx, s.asset)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analysis: refresh %s: %w", s.asset, err)
	}

	a := domain.Analysis{
		Timestamp:  s.now().UTC(),
		Asset:      s.asset,
		Timeframes: forecasts,
		Markets:    make(map[domain.Timeframe][]domain.ThresholdMarket),
	}
	for tf, f := range forecasts {
		if a.CurrentPrice == 0 {
			a.CurrentPrice = f.CurrentPrice
		}
		if f.Err == "" {
			a.Markets[tf] = s.markets.Generate(s.asset, f)
		}
	}

	a.Overall = s.aggregator.Aggregate(
		s.technicalSnapshot(ctx),
		s.headlineForecast(forecasts),
		s.sentimentSnapshot(ctx),
		s.orderbookSnapshot(ctx),
	)

	s.holder.Store(a)
	if s.prices != nil && a.CurrentPrice > 0 {
		if err := s.prices.SetPrice(ctx, s.asset, a.CurrentPrice); err != nil {
			s.log.Warn("price cache write failed", slog.String("error", err.Error()))
		}
	}
	if s.cache != nil {
		if err := s.cache.SetAnalysis(ctx, a); err != nil {
			s.log.Warn("analysis cache write failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		ev := domain.Event{
			ID:      uuid.New().String(),
			Type:    "analysis_refreshed",
			Asset:   s.asset,
			At:      a.Timestamp,
			Payload: a,
		}
		if err := s.bus.Publish(ctx, ChannelAnalysis, ev); err != nil {
			s.log.Warn("bus publish failed", slog.String("error", err.Error()))
		}
	}

	s.log.Info("analysis refreshed",
		slog.String("asset", s.asset),
		slog.Float64("price", a.CurrentPrice),
		slog.String("signal", string(a.Overall.Signal)))
	return a, nil
}

// headlineForecast picks the forecast feeding the overall signal. The
// day horizon carries the most model weight, so it represents the
// model's view.
func (s *Service) headlineForecast(all domain.AllForecasts) *domain.TimeframeForecast {
	f, ok := all[domain.Timeframe24Hr]
	if !ok {
		return nil
	}
	return &f
}

func (s *Service) technicalSnapshot(ctx context.Context) *domain.TechnicalSnapshot {
	history, err := s.history.History(ctx, s.asset, 60)
	if err != nil {
		s.log.Warn("technical history unavailable", slog.String("error", err.Error()))
		return nil
	}
	snap, err := s.technical.Snapshot(history)
	if err != nil {
		s.log.Warn("technical snapshot failed", slog.String("error", err.Error()))
		return nil
	}
	return &snap
}

func (s *Service) sentimentSnapshot(ctx context.Context) *domain.SentimentSnapshot {
	if s.sentiment == nil {
		return nil
	}
	snap, err := s.sentiment.Sentiment(ctx)
	if err != nil {
		s.log.Warn("sentiment unavailable", slog.String("error", err.Error()))
		return nil
	}
	return &snap
}

func (s *Service) orderbookSnapshot(ctx context.Context) *domain.OrderbookSnapshot {
	if s.orderbook == nil {
		return nil
	}
	snap, err := s.orderbook.Orderbook(ctx, s.asset)
	if err != nil {
		s.log.Warn("orderbook unavailable", slog.String("error", err.Error()))
		return nil
	}
	return &snap
}
