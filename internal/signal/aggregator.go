// Package signal blends the independent market reads (technicals, the
// model forecast, sentiment and book depth) into one overall stance.
package signal

import (
	"math"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

// Component weights. The model weight is further scaled by the
// forecast's own confidence.
const (
	weightTechnical = 0.40
	weightModel     = 0.35
	weightSentiment = 0.15
	weightOrderbook = 0.10
)

// labelValues maps stance labels onto the [-1, 1] scale the blend
// works in.
var labelValues = map[domain.TradeLabel]float64{
	domain.TradeStrongSell: -1.0,
	domain.TradeSell:       -0.5,
	domain.TradeNeutral:    0,
	domain.TradeBuy:        0.5,
	domain.TradeStrongBuy:  1.0,
}

// Aggregator combines whatever inputs are available; nil inputs are
// dropped from the blend rather than counted as neutral.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

// Aggregate blends the available components into an overall signal.
// With no components at all it returns the neutral default.
func (a *Aggregator) Aggregate(
	tech *domain.TechnicalSnapshot,
	ml *domain.TimeframeForecast,
	sent *domain.SentimentSnapshot,
	book *domain.OrderbookSnapshot,
) domain.OverallSignal {
	components := make(map[string]domain.SignalComponent)

	if tech != nil {
		components["technical"] = domain.SignalComponent{
			Value:  labelValues[tech.Signal],
			Weight: weightTechnical,
		}
	}
	if ml != nil && ml.Err == "" {
		components["ml_prediction"] = domain.SignalComponent{
			Value:  labelValues[forecastLabel(ml.ChangePct)],
			Weight: weightModel * ml.Confidence,
		}
	}
	if sent != nil {
		components["sentiment"] = domain.SignalComponent{
			Value:  (sent.FearGreedIndex - 50) / 50,
			Weight: weightSentiment,
		}
	}
	if book != nil {
		if total := book.BidVolume + book.AskVolume; total > 0 {
			components["orderbook"] = domain.SignalComponent{
				Value:  (book.BidVolume - book.AskVolume) / total,
				Weight: weightOrderbook,
			}
		}
	}

	if len(components) == 0 {
		return domain.OverallSignal{
			Signal:     domain.TradeNeutral,
			Score:      50,
			Components: components,
		}
	}

	var weightedSum, weightSum float64
	values := make([]float64, 0, len(components))
	for _, c := range components {
		weightedSum += c.Value * c.Weight
		weightSum += c.Weight
		values = append(values, c.Value)
	}
	// Every present component can still carry zero weight, e.g. a
	// zero-confidence forecast. No weight means no stance.
	if weightSum <= 0 {
		return domain.OverallSignal{
			Signal:     domain.TradeNeutral,
			Score:      50,
			Components: components,
		}
	}
	weighted := weightedSum / weightSum

	confidence := 0.5
	if len(values) >= 2 {
		confidence = stats.Clamp01(1 - stats.PopStdDev(values))
	}

	return domain.OverallSignal{
		Signal:     domain.TradeLabelFor(weighted),
		Weighted:   weighted,
		Score:      int(math.Round((weighted + 1) * 50)),
		Confidence: confidence,
		Components: components,
	}
}

// forecastLabel turns a predicted percent change into a stance. The
// bands are wider than the blended-value bands because a raw forecast
// needs a real move before it counts as conviction.
func forecastLabel(changePct float64) domain.TradeLabel {
	switch {
	case changePct > 1.0:
		return domain.TradeStrongBuy
	case changePct > 0.3:
		return domain.TradeBuy
	case changePct < -1.0:
		return domain.TradeStrongSell
	case changePct < -0.3:
		return domain.TradeSell
	}
	return domain.TradeNeutral
}
