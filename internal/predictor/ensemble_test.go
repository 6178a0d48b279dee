package predictor

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func flatHistory(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = domain.Candle{
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price, Low: price, Close: price,
			Volume: 100,
		}
	}
	return out
}

func TestEnsemblePredictFlatHistory(t *testing.T) {
	e := NewEnsemble(discardLogger(), true)

	price, conf, models, err := e.Predict(flatHistory(30, 50000))
	require.NoError(t, err)

	// Every source sees a flat series and predicts the current price,
	// so dispersion is zero and confidence saturates.
	assert.InDelta(t, 50000, price, 1e-6)
	assert.InDelta(t, 1.0, conf, 1e-9)
	assert.ElementsMatch(t, []string{"momentum", "reversion", "trend"}, models)
}

func TestEnsemblePredictEmptyHistory(t *testing.T) {
	e := NewEnsemble(discardLogger(), true)

	_, _, _, err := e.Predict(nil)
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestEnsemblePredictSingleRespondingSource(t *testing.T) {
	e := NewEnsemble(discardLogger(), true)

	// Four bars: momentum responds, reversion and trend both refuse.
	history := flatHistory(4, 50000)
	_, conf, models, err := e.Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, conf, 1e-9)
	assert.Equal(t, []string{"momentum"}, models)
}

func TestEnsemblePredictSingleModelMode(t *testing.T) {
	e := NewEnsemble(discardLogger(), false)

	_, conf, models, err := e.Predict(flatHistory(30, 50000))
	require.NoError(t, err)
	assert.InDelta(t, 0.7, conf, 1e-9)
	assert.Equal(t, []string{"momentum"}, models)
}

func TestEnsembleConfidenceDropsWithDisagreement(t *testing.T) {
	e := NewEnsemble(discardLogger(), true)

	// A strongly trending series makes the sources disagree, so
	// confidence must fall below the flat-series value.
	history := flatHistory(30, 50000)
	for i := range history {
		history[i].Close = 50000 * (1 + 0.02*float64(i))
	}
	_, conf, _, err := e.Predict(history)
	require.NoError(t, err)
	assert.Less(t, conf, 1.0)
	assert.GreaterOrEqual(t, conf, 0.0)
}

func TestMomentumNeedsThreeBars(t *testing.T) {
	_, err := momentumSource{}.Predict(flatHistory(2, 100))
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestTrendProjectsHalfTheGap(t *testing.T) {
	// 21 bars at 100 then the last 7 bars at 110: sma7=110, sma21 is
	// higher than 100, and the projection is last*(1+gap/2).
	history := flatHistory(21, 100)
	for i := 14; i < 21; i++ {
		history[i].Close = 110
	}
	got, err := trendSource{}.Predict(history)
	require.NoError(t, err)

	sma21 := (14*100.0 + 7*110.0) / 21.0
	want := 110 * (1 + (110-sma21)/sma21*0.5)
	assert.InDelta(t, want, got, 1e-9)
}
