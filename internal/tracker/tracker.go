// Package tracker records forecasts, scores them once their horizon
// passes and summarises the model's track record.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

// correctWithinPct is the error band, in percent of the entry price,
// inside which a resolved prediction counts as correct.
const correctWithinPct = 2.0

// Tracker persists predictions through a store and scores expiries
// against a price oracle.
type Tracker struct {
	store  domain.PredictionStore
	oracle domain.PriceOracle
	now    func() time.Time
	log    *slog.Logger
}

func New(store domain.PredictionStore, oracle domain.PriceOracle, log *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		oracle: oracle,
		now:    time.Now,
		log:    log.With(slog.String("component", "tracker")),
	}
}

// Record stores one timeframe forecast as a pending prediction and
// returns it. Prices and changes are rounded to cents, confidence to
// three decimals.
func (t *Tracker) Record(ctx context.Context, asset, modelType string, f domain.TimeframeForecast) (domain.Prediction, error) {
	created := t.now().UTC()
	p := domain.Prediction{
		ID:                 fmt.Sprintf("%s_%s", created.Format("20060102_150405"), f.Timeframe),
		Asset:              asset,
		Timeframe:          f.Timeframe,
		ModelType:          modelType,
		CreatedAt:          created,
		ExpiryTime:         created.Add(time.Duration(f.Hours * float64(time.Hour))),
		CurrentPrice:       stats.Round2(f.CurrentPrice),
		PredictedPrice:     stats.Round2(f.PredictedPrice),
		Confidence:         stats.Round3(f.Confidence),
		PredictedChangePct: stats.Round2(f.ChangePct),
		Outcome:            domain.OutcomePending,
	}
	if err := t.store.Append(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("tracker: record %s: %w", p.ID, err)
	}
	t.log.Info("prediction recorded",
		slog.String("id", p.ID),
		slog.String("asset", asset),
		slog.String("timeframe", f.Timeframe.String()),
		slog.Float64("predicted", p.PredictedPrice))
	return p, nil
}

// CheckExpired scores every pending prediction whose expiry has
// passed. Predictions the oracle cannot price yet stay pending and are
// retried on the next sweep. Returns the predictions resolved by this
// call.
func (t *Tracker) CheckExpired(ctx context.Context) ([]domain.Prediction, error) {
	now := t.now().UTC()
	due, err := t.store.ListPendingDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("tracker: list due: %w", err)
	}

	var resolved []domain.Prediction
	for _, p := range due {
		actual, err := t.oracle.PriceAt(ctx, p.Asset, p.ExpiryTime)
		if err != nil || actual <= 0 {
			if err != nil {
				t.log.Warn("oracle lookup failed, keeping pending",
					slog.String("id", p.ID), slog.String("error", err.Error()))
			}
			continue
		}

		r := score(p, actual, now)
		ok, err := t.store.Resolve(ctx, p.ID, r)
		if err != nil {
			return resolved, fmt.Errorf("tracker: resolve %s: %w", p.ID, err)
		}
		if !ok {
			// Another sweep got there first.
			continue
		}
		p.ActualPrice = r.ActualPrice
		p.ActualChangePct = r.ActualChangePct
		p.AbsError = r.AbsError
		p.ErrorPct = r.ErrorPct
		p.Outcome = r.Outcome
		p.ResolvedAt = &r.ResolvedAt
		resolved = append(resolved, p)
		t.log.Info("prediction resolved",
			slog.String("id", p.ID),
			slog.String("outcome", string(r.Outcome)),
			slog.Float64("error_pct", r.ErrorPct))
	}
	return resolved, nil
}

func score(p domain.Prediction, actual float64, at time.Time) domain.Resolution {
	absErr := math.Abs(actual - p.PredictedPrice)
	var errPct, actualChange float64
	if p.CurrentPrice > 0 {
		errPct = absErr / p.CurrentPrice * 100
		actualChange = (actual - p.CurrentPrice) / p.CurrentPrice * 100
	}
	outcome := domain.OutcomeIncorrect
	if errPct <= correctWithinPct {
		outcome = domain.OutcomeCorrect
	}
	return domain.Resolution{
		ActualPrice:     stats.Round2(actual),
		ActualChangePct: stats.Round2(actualChange),
		AbsError:        stats.Round2(absErr),
		ErrorPct:        stats.Round2(errPct),
		Outcome:         outcome,
		ResolvedAt:      at,
	}
}

// Statistics summarises the resolved predictions matching the filter.
func (t *Tracker) Statistics(ctx context.Context, f domain.StatsFilter) (domain.Statistics, error) {
	resolved, err := t.store.ListResolved(ctx, f)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("tracker: list resolved: %w", err)
	}
	return summarize(resolved), nil
}

// StatisticsByTimeframe breaks the asset's track record down per
// horizon. Horizons with no resolved predictions are omitted.
func (t *Tracker) StatisticsByTimeframe(ctx context.Context, asset string) (map[domain.Timeframe]domain.Statistics, error) {
	out := make(map[domain.Timeframe]domain.Statistics)
	for _, tf := range domain.Timeframes() {
		s, err := t.Statistics(ctx, domain.StatsFilter{Asset: asset, Timeframe: tf})
		if err != nil {
			return nil, err
		}
		if s.TotalPredictions > 0 {
			out[tf] = s
		}
	}
	return out, nil
}

// Recent returns the latest predictions in any state, newest first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	if limit <= 0 {
		limit = 20
	}
	ps, err := t.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("tracker: list recent: %w", err)
	}
	return ps, nil
}

func summarize(resolved []domain.Prediction) domain.Statistics {
	if len(resolved) == 0 {
		return domain.Statistics{Error: "no completed predictions found"}
	}

	var (
		correct     int
		errsUSD     []float64
		errsPct     []float64
		confidences []float64
		brierSum    float64
		totalPnL    float64
	)
	for _, p := range resolved {
		if p.Outcome == domain.OutcomeCorrect {
			correct++
		}
		errsUSD = append(errsUSD, p.AbsError)
		errsPct = append(errsPct, p.ErrorPct)
		confidences = append(confidences, p.Confidence)

		outcome01 := 0.0
		if p.Outcome == domain.OutcomeCorrect {
			outcome01 = 1.0
		}
		d := p.Confidence - outcome01
		brierSum += d * d

		// Long when the model predicted up, short when it predicted
		// down.
		if p.PredictedChangePct > 0 {
			totalPnL += p.ActualChangePct
		} else {
			totalPnL -= p.ActualChangePct
		}
	}

	n := len(resolved)
	return domain.Statistics{
		TotalPredictions: n,
		Correct:          correct,
		Incorrect:        n - correct,
		WinRate:          stats.Round2(float64(correct) / float64(n) * 100),
		AvgErrorUSD:      stats.Round2(stats.Mean(errsUSD)),
		MedianErrorUSD:   stats.Round2(stats.Median(errsUSD)),
		AvgErrorPct:      stats.Round2(stats.Mean(errsPct)),
		MedianErrorPct:   stats.Round2(stats.Median(errsPct)),
		BrierScore:       stats.Round3(brierSum / float64(n)),
		TotalPnLPct:      stats.Round2(totalPnL),
		AvgPnLPerTrade:   stats.Round2(totalPnL / float64(n)),
		AvgConfidence:    stats.Round3(stats.Mean(confidences)),
		ConfidenceStd:    stats.Round3(stats.PopStdDev(confidences)),
	}
}
