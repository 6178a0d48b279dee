// Package market turns a forecast into a book of "above the threshold"
// markets with model-implied probabilities and a recommended side.
package market

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

const (
	// Probability a side needs before it is worth taking.
	actionableProb = 65
	// Probability above which the recommendation is graded STRONG.
	strongProb = 75
	// Minimum edge over even odds for a market to be listed.
	minEdge = 10
	// Cap on round-number thresholds added around the current price.
	maxRoundThresholds = 10
)

var thresholdMultipliers = []float64{0.98, 0.99, 1.00, 1.01, 1.02, 1.03, 1.05, 1.10}

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Generator prices threshold markets off a single forecast.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generate evaluates candidate thresholds around the current price and
// returns the markets worth listing, best edge first. The result is
// empty when the current price is not positive.
func (g *Generator) Generate(asset string, f domain.TimeframeForecast) []domain.ThresholdMarket {
	current := f.CurrentPrice
	if current <= 0 {
		return nil
	}

	// Forecast dispersion: wider when confidence is low, floored so a
	// perfect-confidence forecast still has nonzero spread.
	sigma := current * 0.02 * (1.5 - f.Confidence)
	if sigma < current*1e-6 {
		sigma = current * 1e-6
	}

	var out []domain.ThresholdMarket
	for _, t := range candidateThresholds(current) {
		m := evaluate(asset, f.Timeframe, t, f.PredictedPrice, sigma)
		if m.Edge >= minEdge {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Edge > out[j].Edge })
	return out
}

func evaluate(asset string, tf domain.Timeframe, threshold, predicted, sigma float64) domain.ThresholdMarket {
	z := (threshold - predicted) / sigma
	yes := round1(100 * (1 - stdNormal.CDF(z)))
	no := round1(100 - yes)

	m := domain.ThresholdMarket{
		Question:       fmt.Sprintf("%s above $%s in %s?", asset, formatPrice(threshold), tf),
		Timeframe:      tf,
		Threshold:      threshold,
		YesProbability: yes,
		NoProbability:  no,
		Recommendation: domain.RecommendSkip,
		Strength:       domain.StrengthWeak,
	}

	winning := math.Max(yes, no)
	m.Edge = round1(winning - 50)
	switch {
	case yes > actionableProb:
		m.Recommendation = domain.RecommendBuyYes
	case no > actionableProb:
		m.Recommendation = domain.RecommendBuyNo
	}
	if m.Recommendation != domain.RecommendSkip {
		if winning > strongProb {
			m.Strength = domain.StrengthStrong
		} else {
			m.Strength = domain.StrengthGood
		}
	}
	return m
}

// candidateThresholds mixes fixed multiples of the current price with
// round numbers within ten percent of it, de-duplicated after rounding
// to cents.
func candidateThresholds(current float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	add := func(t float64) {
		t = stats.Round2(t)
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, m := range thresholdMultipliers {
		add(current * m)
	}
	for _, t := range roundNumbersNear(current) {
		add(t)
	}
	return out
}

func roundNumbersNear(current float64) []float64 {
	step := roundStep(current)
	lo, hi := current*0.9, current*1.1

	var out []float64
	for t := math.Ceil(lo/step) * step; t <= hi; t += step {
		// Too close to spot to be an interesting strike.
		if math.Abs(t-current) < current*0.005 {
			continue
		}
		out = append(out, t)
		if len(out) >= maxRoundThresholds {
			break
		}
	}
	return out
}

func roundStep(current float64) float64 {
	switch {
	case current > 100_000:
		return 5000
	case current > 50_000:
		return 2500
	case current > 10_000:
		return 1000
	}
	return 500
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func formatPrice(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
