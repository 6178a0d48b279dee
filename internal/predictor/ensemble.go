package predictor

import (
	"fmt"
	"log/slog"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

// Default ensemble weights per source name. Sources not listed get
// zero weight and are ignored.
var defaultWeights = map[string]float64{
	"momentum":  0.4,
	"reversion": 0.3,
	"trend":     0.3,
}

// Ensemble blends several prediction sources into one forecast price
// with a dispersion-based confidence.
type Ensemble struct {
	sources     []Source
	weights     map[string]float64
	useEnsemble bool
	log         *slog.Logger
}

// NewEnsemble builds the default three-source ensemble. When
// useEnsemble is false only the first source is consulted and the
// confidence is fixed at the single-source level.
func NewEnsemble(log *slog.Logger, useEnsemble bool) *Ensemble {
	return &Ensemble{
		sources:     []Source{momentumSource{}, reversionSource{}, trendSource{}},
		weights:     defaultWeights,
		useEnsemble: useEnsemble,
		log:         log.With(slog.String("component", "ensemble")),
	}
}

// Predict returns the blended predicted price, a confidence in [0, 1]
// and the names of the sources that responded. Sources that error are
// skipped; with no responding source it returns ErrNoData.
func (e *Ensemble) Predict(history []domain.Candle) (price, confidence float64, models []string, err error) {
	if len(history) == 0 {
		return 0, 0, nil, fmt.Errorf("predictor: empty history: %w", domain.ErrNoData)
	}
	current := history[len(history)-1].Close

	sources := e.sources
	if !e.useEnsemble && len(sources) > 1 {
		sources = sources[:1]
	}

	var (
		preds     []float64
		weightSum float64
		blended   float64
	)
	for _, s := range sources {
		w := e.weights[s.Name()]
		if w <= 0 {
			continue
		}
		p, perr := s.Predict(history)
		if perr != nil {
			e.log.Debug("source skipped", slog.String("source", s.Name()), slog.String("error", perr.Error()))
			continue
		}
		preds = append(preds, p)
		models = append(models, s.Name())
		blended += w * p
		weightSum += w
	}

	switch len(preds) {
	case 0:
		return 0, 0, nil, fmt.Errorf("predictor: no source responded: %w", domain.ErrNoData)
	case 1:
		return preds[0], 0.7, models, nil
	}

	price = blended / weightSum
	confidence = 1.0
	if current > 0 {
		confidence = stats.Clamp01(1 - stats.PopStdDev(preds)/current)
	}
	return price, confidence, models, nil
}
