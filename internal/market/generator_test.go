package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
)

func forecast(current, predicted, confidence float64) domain.TimeframeForecast {
	return domain.TimeframeForecast{
		Forecast:  domain.NewForecast(current, predicted, confidence),
		Timeframe: domain.Timeframe24Hr,
		Hours:     24,
	}
}

func findThreshold(ms []domain.ThresholdMarket, t float64) (domain.ThresholdMarket, bool) {
	for _, m := range ms {
		if m.Threshold == t {
			return m, true
		}
	}
	return domain.ThresholdMarket{}, false
}

func TestEvaluateKnownScenario(t *testing.T) {
	// current 90000, predicted 91800, confidence 0.8 gives
	// sigma = 90000 * 0.02 * 0.7 = 1260. A 91000 strike prices the yes
	// side near 73.7.
	m := evaluate("BTC", domain.Timeframe24Hr, 91000, 91800, 1260)

	assert.InDelta(t, 73.7, m.YesProbability, 0.1)
	assert.InDelta(t, 26.3, m.NoProbability, 0.1)
	assert.Equal(t, domain.RecommendBuyYes, m.Recommendation)
	assert.Equal(t, domain.StrengthGood, m.Strength)
	assert.InDelta(t, 23.7, m.Edge, 0.1)
}

func TestGenerateListsBullishStrikes(t *testing.T) {
	g := NewGenerator()
	ms := g.Generate("BTC", forecast(90000, 91800, 0.8))
	require.NotEmpty(t, ms)

	// The 1% multiplier strike sits below the forecast, so the yes
	// side must clear the listing floor.
	m, ok := findThreshold(ms, 90900)
	require.True(t, ok, "90900 strike missing")
	assert.Equal(t, domain.RecommendBuyYes, m.Recommendation)
	assert.Greater(t, m.YesProbability, 65.0)
}

func TestGenerateProbabilitiesComplement(t *testing.T) {
	g := NewGenerator()
	for _, m := range g.Generate("BTC", forecast(90000, 91800, 0.8)) {
		assert.InDelta(t, 100, m.YesProbability+m.NoProbability, 0.11, "threshold %v", m.Threshold)
	}
}

func TestGenerateYesMonotoneInThreshold(t *testing.T) {
	g := NewGenerator()
	ms := g.Generate("BTC", forecast(90000, 91800, 0.8))
	require.NotEmpty(t, ms)

	byThreshold := make(map[float64]float64, len(ms))
	var thresholds []float64
	for _, m := range ms {
		byThreshold[m.Threshold] = m.YesProbability
		thresholds = append(thresholds, m.Threshold)
	}
	for i := range thresholds {
		for j := range thresholds {
			if thresholds[i] < thresholds[j] {
				assert.GreaterOrEqual(t, byThreshold[thresholds[i]], byThreshold[thresholds[j]])
			}
		}
	}
}

func TestGenerateEdgeFloorAndOrdering(t *testing.T) {
	g := NewGenerator()
	ms := g.Generate("BTC", forecast(90000, 91800, 0.8))
	require.NotEmpty(t, ms)

	for i, m := range ms {
		assert.GreaterOrEqual(t, m.Edge, 10.0)
		if i > 0 {
			assert.LessOrEqual(t, m.Edge, ms[i-1].Edge)
		}
	}
}

func TestGenerateSkipIsGradedWeak(t *testing.T) {
	// A forecast sitting on the current price prices near-spot strikes
	// close to even, but the listing floor already removes those, so
	// force a wide sigma and check every SKIP market is graded WEAK.
	g := NewGenerator()
	for _, m := range g.Generate("BTC", forecast(90000, 90000, 0.0)) {
		if m.Recommendation == domain.RecommendSkip {
			assert.Equal(t, domain.StrengthWeak, m.Strength)
		} else {
			assert.Contains(t, []domain.Strength{domain.StrengthStrong, domain.StrengthGood}, m.Strength)
		}
	}
}

func TestGenerateNonPositivePrice(t *testing.T) {
	g := NewGenerator()
	assert.Empty(t, g.Generate("BTC", forecast(0, 0, 0.5)))
	assert.Empty(t, g.Generate("BTC", forecast(-1, 100, 0.5)))
}

func TestRoundStepBrackets(t *testing.T) {
	assert.Equal(t, 5000.0, roundStep(120_000))
	assert.Equal(t, 2500.0, roundStep(60_000))
	assert.Equal(t, 1000.0, roundStep(20_000))
	assert.Equal(t, 500.0, roundStep(9_000))
}

func TestRoundNumbersNearSkipsSpotAndCaps(t *testing.T) {
	out := roundNumbersNear(90_000)
	require.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), maxRoundThresholds)
	for _, v := range out {
		assert.Greater(t, math.Abs(v-90_000), 90_000*0.005-1)
		assert.GreaterOrEqual(t, v, 90_000*0.9)
		assert.LessOrEqual(t, v, 90_000*1.1)
	}
}
