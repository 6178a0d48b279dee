package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
)

// timeframeSpec fixes how one horizon blends the model output with the
// current price and how much its confidence decays with distance.
type timeframeSpec struct {
	hours       float64
	modelWeight float64 // share of the blend given to the model price
	techWeight  float64 // share kept at the current price
	decay       float64
}

// The model share is split between the two model-driven sources; only
// the sum matters for the blend, so it is stored combined.
var timeframeSpecs = map[domain.Timeframe]timeframeSpec{
	domain.Timeframe15Min: {hours: 0.25, modelWeight: 0.20 + 0.30, techWeight: 0.50, decay: 0.95},
	domain.Timeframe1Hr:   {hours: 1.0, modelWeight: 0.30 + 0.35, techWeight: 0.35, decay: 0.90},
	domain.Timeframe4Hr:   {hours: 4.0, modelWeight: 0.35 + 0.35, techWeight: 0.30, decay: 0.80},
	domain.Timeframe24Hr:  {hours: 24.0, modelWeight: 0.45 + 0.35, techWeight: 0.20, decay: 0.70},
	domain.Timeframe7D:    {hours: 168.0, modelWeight: 0.50 + 0.30, techWeight: 0.20, decay: 0.50},
}

// lookbackBars returns how many bars of history a horizon consumes,
// five per hour bounded to [5, 60].
func lookbackBars(hours float64) int {
	n := int(hours * 5)
	if n < 5 {
		n = 5
	}
	if n > 60 {
		n = 60
	}
	return n
}

// Orchestrator produces a forecast per timeframe from one history
// source, isolating failures so one bad horizon never spoils the rest.
type Orchestrator struct {
	source   domain.PriceHistorySource
	ensemble *Ensemble
	now      func() time.Time
	log      *slog.Logger
}

func NewOrchestrator(source domain.PriceHistorySource, ensemble *Ensemble, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source:   source,
		ensemble: ensemble,
		now:      time.Now,
		log:      log.With(slog.String("component", "timeframes")),
	}
}

// PredictAll forecasts every supported timeframe for the asset. The
// returned map always has an entry per timeframe; entries whose
// horizon failed carry the error text, the current price and zero
// confidence.
func (o *Orchestrator) PredictAll(ctx context.Context, asset string) (domain.AllForecasts, error) {
	current, err := o.source.SpotPrice(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("predictor: spot price for %s: %w", asset, err)
	}

	now := o.now()
	out := make(domain.AllForecasts, len(timeframeSpecs))
	for _, tf := range domain.Timeframes() {
		spec := timeframeSpecs[tf]
		f, ferr := o.predictOne(ctx, asset, current, spec)
		tff := domain.TimeframeForecast{
			Forecast:   f,
			Timeframe:  tf,
			Hours:      spec.hours,
			ExpiryTime: now.Add(time.Duration(spec.hours * float64(time.Hour))),
			Weights: domain.ForecastWeights{
				Model:     spec.modelWeight,
				Technical: spec.techWeight,
				Decay:     spec.decay,
			},
		}
		if ferr != nil {
			o.log.Warn("timeframe failed",
				slog.String("asset", asset),
				slog.String("timeframe", tf.String()),
				slog.String("error", ferr.Error()))
			tff.Err = ferr.Error()
			tff.Forecast = domain.NewForecast(current, current, 0)
		}
		out[tf] = tff
	}
	return out, nil
}

func (o *Orchestrator) predictOne(ctx context.Context, asset string, current float64, spec timeframeSpec) (domain.Forecast, error) {
	history, err := o.source.History(ctx, asset, lookbackBars(spec.hours))
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("predictor: history: %w", err)
	}

	mlPrice, mlConf, models, err := o.ensemble.Predict(history)
	if err != nil {
		// Thin history is not a failure: fall back to the current
		// price at the base confidence for this horizon.
		if errors.Is(err, domain.ErrNoData) {
			return domain.NewForecast(current, current, 0.5*spec.decay), nil
		}
		return domain.Forecast{}, err
	}

	if mlPrice <= 0 {
		f := domain.NewForecast(current, current, 0.5*spec.decay)
		f.ModelsUsed = models
		return f, nil
	}

	total := spec.modelWeight + spec.techWeight
	predicted := (mlPrice*spec.modelWeight + current*spec.techWeight) / total
	f := domain.NewForecast(current, predicted, mlConf*spec.decay)
	f.ModelsUsed = models
	return f, nil
}
