package predictor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
)

type fakeHistorySource struct {
	spot      float64
	spotErr   error
	histErr   error
	histBars  int // when >0, caps how many bars are returned
	requested []int
}

func (f *fakeHistorySource) History(_ context.Context, _ string, bars int) ([]domain.Candle, error) {
	f.requested = append(f.requested, bars)
	if f.histErr != nil {
		return nil, f.histErr
	}
	if f.histBars > 0 && bars > f.histBars {
		bars = f.histBars
	}
	return flatHistory(bars, f.spot), nil
}

func (f *fakeHistorySource) SpotPrice(context.Context, string) (float64, error) {
	return f.spot, f.spotErr
}

func newTestOrchestrator(src domain.PriceHistorySource, at time.Time) *Orchestrator {
	o := NewOrchestrator(src, NewEnsemble(discardLogger(), true), discardLogger())
	o.now = func() time.Time { return at }
	return o
}

func TestPredictAllCoversEveryTimeframe(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeHistorySource{spot: 60000}
	o := newTestOrchestrator(src, now)

	all, err := o.PredictAll(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, all, 5)

	for _, tf := range domain.Timeframes() {
		f, ok := all[tf]
		require.True(t, ok, "missing %s", tf)
		assert.Empty(t, f.Err)
		assert.Equal(t, tf.Hours(), f.Hours)
		assert.Equal(t, now.Add(time.Duration(tf.Hours()*float64(time.Hour))), f.ExpiryTime)
		assert.InDelta(t, 60000, f.CurrentPrice, 1e-6)
		assert.NotEmpty(t, f.ModelsUsed)
		assert.Greater(t, f.Weights.Model, 0.0)
		assert.Greater(t, f.Weights.Technical, 0.0)
		assert.InDelta(t, 1.0, f.Weights.Model+f.Weights.Technical, 1e-9)
		assert.Greater(t, f.Weights.Decay, 0.0)
	}
}

func TestPredictAllFallsBackOnThinHistory(t *testing.T) {
	// Two bars is below what any source accepts, so every horizon
	// falls back to the current price at half the decayed confidence
	// instead of reporting an error.
	src := &fakeHistorySource{spot: 60000, histBars: 2}
	o := newTestOrchestrator(src, time.Now())

	all, err := o.PredictAll(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, all, 5)

	for _, tf := range domain.Timeframes() {
		f := all[tf]
		assert.Empty(t, f.Err, tf)
		assert.Equal(t, 60000.0, f.PredictedPrice)
		assert.InDelta(t, 0.5*f.Weights.Decay, f.Confidence, 1e-9)
		assert.Empty(t, f.ModelsUsed)
	}
	assert.InDelta(t, 0.475, all[domain.Timeframe15Min].Confidence, 1e-9)
}

func TestPredictAllLookbackBounds(t *testing.T) {
	src := &fakeHistorySource{spot: 60000}
	o := newTestOrchestrator(src, time.Now())

	_, err := o.PredictAll(context.Background(), "BTC")
	require.NoError(t, err)

	// Five bars per hour, clamped to [5, 60]: 15min and 1hr floor at
	// 5, 4hr uses 20, 24hr and 7d hit the ceiling.
	assert.Equal(t, []int{5, 5, 20, 60, 60}, src.requested)
}

func TestPredictAllIsolatesHorizonFailures(t *testing.T) {
	src := &fakeHistorySource{spot: 60000, histErr: errors.New("upstream down")}
	o := newTestOrchestrator(src, time.Now())

	all, err := o.PredictAll(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, all, 5)

	for _, tf := range domain.Timeframes() {
		f := all[tf]
		assert.NotEmpty(t, f.Err)
		assert.Equal(t, 60000.0, f.PredictedPrice)
		assert.Zero(t, f.Confidence)
		assert.Equal(t, domain.DirectionNeutral, f.Direction)
	}
}

func TestPredictAllSpotFailureIsFatal(t *testing.T) {
	src := &fakeHistorySource{spotErr: errors.New("rate limited")}
	o := newTestOrchestrator(src, time.Now())

	_, err := o.PredictAll(context.Background(), "BTC")
	require.Error(t, err)
}

func TestLookbackBars(t *testing.T) {
	assert.Equal(t, 5, lookbackBars(0.25))
	assert.Equal(t, 5, lookbackBars(1))
	assert.Equal(t, 20, lookbackBars(4))
	assert.Equal(t, 60, lookbackBars(24))
	assert.Equal(t, 60, lookbackBars(168))
}
