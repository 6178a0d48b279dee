package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/store/memory"
)

type fakeOracle struct {
	price float64
	err   error
	calls int
}

func (o *fakeOracle) PriceAt(context.Context, string, time.Time) (float64, error) {
	o.calls++
	return o.price, o.err
}

func newTestTracker(oracle domain.PriceOracle) (*Tracker, *memory.PredictionStore, *time.Time) {
	store := memory.NewPredictionStore()
	tr := New(store, oracle, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, store, &now
}

func tfForecast(tf domain.Timeframe, current, predicted, conf float64) domain.TimeframeForecast {
	return domain.TimeframeForecast{
		Forecast:  domain.NewForecast(current, predicted, conf),
		Timeframe: tf,
		Hours:     tf.Hours(),
	}
}

func TestRecordShapesPrediction(t *testing.T) {
	tr, store, now := newTestTracker(&fakeOracle{})

	p, err := tr.Record(context.Background(), "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000.456, 91800.123456, 0.87654))
	require.NoError(t, err)

	assert.Equal(t, "20260901_120000_1hr", p.ID)
	assert.Equal(t, now.Add(time.Hour), p.ExpiryTime)
	assert.Equal(t, 90000.46, p.CurrentPrice)
	assert.Equal(t, 91800.12, p.PredictedPrice)
	assert.Equal(t, 0.877, p.Confidence)
	assert.Equal(t, domain.OutcomePending, p.Outcome)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestCheckExpiredBeforeExpiryIsNoop(t *testing.T) {
	oracle := &fakeOracle{price: 91000}
	tr, _, _ := newTestTracker(oracle)

	_, err := tr.Record(context.Background(), "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	resolved, err := tr.CheckExpired(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Zero(t, oracle.calls)
}

func TestCheckExpiredScoresWithinBand(t *testing.T) {
	// Error of 200 against a 90000 entry is 0.22%, inside the 2% band.
	oracle := &fakeOracle{price: 91600}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	resolved, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	p := resolved[0]
	assert.Equal(t, domain.OutcomeCorrect, p.Outcome)
	assert.Equal(t, 91600.0, p.ActualPrice)
	assert.Equal(t, 200.0, p.AbsError)
	assert.Equal(t, 0.22, p.ErrorPct)
	assert.InDelta(t, 1.78, p.ActualChangePct, 1e-9)
	require.NotNil(t, p.ResolvedAt)
}

func TestCheckExpiredScoresOutsideBand(t *testing.T) {
	oracle := &fakeOracle{price: 85000}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	resolved, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.OutcomeIncorrect, resolved[0].Outcome)
}

func TestCheckExpiredOracleGapStaysPending(t *testing.T) {
	oracle := &fakeOracle{price: 0}
	tr, store, now := newTestTracker(oracle)
	ctx := context.Background()

	p, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	resolved, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	// Still pending, so the next sweep retries it.
	oracle.price = 91600
	resolved, err = tr.CheckExpired(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCorrect, stored.Outcome)
}

func TestCheckExpiredOracleErrorStaysPending(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("rate limited")}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	resolved, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestCheckExpiredIsIdempotent(t *testing.T) {
	oracle := &fakeOracle{price: 91600}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	first, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := tr.CheckExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestStatisticsEmpty(t *testing.T) {
	tr, _, _ := newTestTracker(&fakeOracle{})

	s, err := tr.Statistics(context.Background(), domain.StatsFilter{})
	require.NoError(t, err)
	assert.Zero(t, s.TotalPredictions)
	assert.Equal(t, "no completed predictions found", s.Error)
}

func TestStatisticsSummary(t *testing.T) {
	oracle := &fakeOracle{}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	// Ten predictions: seven land within the band, three miss. Each
	// prediction is up 2%, so realised pnl follows the actual change.
	for i := 0; i < 10; i++ {
		*now = time.Date(2026, 9, 1, 12, i, 0, 0, time.UTC)
		_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
		require.NoError(t, err)

		*now = now.Add(2 * time.Hour)
		if i < 7 {
			oracle.price = 91800 // exact hit
		} else {
			oracle.price = 85000 // miss, down 5.56%
		}
		resolved, err := tr.CheckExpired(ctx)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
	}

	s, err := tr.Statistics(ctx, domain.StatsFilter{Asset: "BTC"})
	require.NoError(t, err)

	assert.Equal(t, 10, s.TotalPredictions)
	assert.Equal(t, 7, s.Correct)
	assert.Equal(t, 3, s.Incorrect)
	assert.Equal(t, 70.0, s.WinRate)
	// Brier with confidence 0.8: 7*(0.2)^2 + 3*(0.8)^2 over 10.
	assert.InDelta(t, (7*0.04+3*0.64)/10, s.BrierScore, 1e-3)
	// All trades long 2% predicted: pnl is the actual change.
	assert.InDelta(t, 7*2.0+3*(-5.56), s.TotalPnLPct, 0.01)
	assert.InDelta(t, 0.8, s.AvgConfidence, 1e-9)
	assert.Zero(t, s.ConfidenceStd)
}

func TestStatisticsSinceWindow(t *testing.T) {
	oracle := &fakeOracle{price: 91800}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	// One prediction a week ago, one today; both resolve.
	*now = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)
	*now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	_, err = tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)
	*now = now.Add(2 * time.Hour)
	_, err = tr.CheckExpired(ctx)
	require.NoError(t, err)

	all, err := tr.Statistics(ctx, domain.StatsFilter{Asset: "BTC"})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalPredictions)

	recent, err := tr.Statistics(ctx, domain.StatsFilter{
		Asset: "BTC",
		Since: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, recent.TotalPredictions)
}

func TestStatisticsByTimeframeOmitsEmptyHorizons(t *testing.T) {
	oracle := &fakeOracle{price: 91800}
	tr, _, now := newTestTracker(oracle)
	ctx := context.Background()

	_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(domain.Timeframe1Hr, 90000, 91800, 0.8))
	require.NoError(t, err)
	*now = now.Add(2 * time.Hour)
	_, err = tr.CheckExpired(ctx)
	require.NoError(t, err)

	byTF, err := tr.StatisticsByTimeframe(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, byTF, 1)
	assert.Equal(t, 1, byTF[domain.Timeframe1Hr].TotalPredictions)
}

func TestRecentNewestFirst(t *testing.T) {
	tr, _, now := newTestTracker(&fakeOracle{})
	ctx := context.Background()

	for i, tf := range []domain.Timeframe{domain.Timeframe15Min, domain.Timeframe1Hr, domain.Timeframe4Hr} {
		*now = time.Date(2026, 9, 1, 12, i, 0, 0, time.UTC)
		_, err := tr.Record(ctx, "BTC", "ensemble", tfForecast(tf, 90000, 91800, 0.8))
		require.NoError(t, err)
	}

	got, err := tr.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Timeframe4Hr, got[0].Timeframe)
	assert.Equal(t, domain.Timeframe1Hr, got[1].Timeframe)
}
