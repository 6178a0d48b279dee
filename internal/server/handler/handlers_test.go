package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/store/memory"
	"github.com/quantary/forecastbot/internal/tracker"
)

type staticSnapshots struct {
	a  domain.Analysis
	ok bool
}

func (s staticSnapshots) Load() (domain.Analysis, bool) { return s.a, s.ok }

type nilOracle struct{}

func (nilOracle) PriceAt(context.Context, string, time.Time) (float64, error) { return 0, nil }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleAnalysis() domain.Analysis {
	return domain.Analysis{
		Timestamp:    time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Asset:        "BTC",
		CurrentPrice: 90000,
		Markets: map[domain.Timeframe][]domain.ThresholdMarket{
			domain.Timeframe24Hr: {{Threshold: 88200, Recommendation: domain.RecommendBuyYes, Edge: 24.8}},
		},
	}
}

func TestGetAnalysisServesSnapshot(t *testing.T) {
	h := NewAnalysisHandler("BTC", staticSnapshots{a: sampleAnalysis(), ok: true}, nil, discard())

	rec := httptest.NewRecorder()
	h.GetAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "BTC", got.Asset)
	assert.Equal(t, 90000.0, got.CurrentPrice)
}

func TestGetAnalysisUnavailable(t *testing.T) {
	h := NewAnalysisHandler("BTC", staticSnapshots{}, nil, discard())

	rec := httptest.NewRecorder()
	h.GetAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListMarketsFiltersTimeframe(t *testing.T) {
	h := NewAnalysisHandler("BTC", staticSnapshots{a: sampleAnalysis(), ok: true}, nil, discard())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets?timeframe=24hr", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Timeframe string                   `json:"timeframe"`
		Markets   []domain.ThresholdMarket `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "24hr", got.Timeframe)
	require.Len(t, got.Markets, 1)
	assert.Equal(t, 88200.0, got.Markets[0].Threshold)
}

func TestListMarketsRanksAcrossTimeframes(t *testing.T) {
	a := sampleAnalysis()
	a.Markets = map[domain.Timeframe][]domain.ThresholdMarket{
		domain.Timeframe1Hr: {
			{Timeframe: domain.Timeframe1Hr, Threshold: 91000, Edge: 12.5},
		},
		domain.Timeframe24Hr: {
			{Timeframe: domain.Timeframe24Hr, Threshold: 88200, Edge: 24.8},
			{Timeframe: domain.Timeframe24Hr, Threshold: 95000, Edge: 10.1},
		},
	}
	h := NewAnalysisHandler("BTC", staticSnapshots{a: a, ok: true}, nil, discard())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Markets []domain.ThresholdMarket `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Markets, 3)
	assert.Equal(t, []float64{24.8, 12.5, 10.1},
		[]float64{got.Markets[0].Edge, got.Markets[1].Edge, got.Markets[2].Edge})
	assert.Equal(t, domain.Timeframe1Hr, got.Markets[1].Timeframe)
}

func TestListMarketsRejectsUnknownTimeframe(t *testing.T) {
	h := NewAnalysisHandler("BTC", staticSnapshots{a: sampleAnalysis(), ok: true}, nil, discard())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets?timeframe=3min", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatsEmptyTrackRecord(t *testing.T) {
	tr := tracker.New(memory.NewPredictionStore(), nilOracle{}, discard())
	h := NewPredictionHandler("BTC", tr, discard())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Zero(t, got.TotalPredictions)
	assert.Equal(t, "no completed predictions found", got.Error)
}

func TestGetStatsLastNDaysWindow(t *testing.T) {
	store := memory.NewPredictionStore()
	resolvedAt := func(created time.Time) domain.Prediction {
		return domain.Prediction{
			ID:        created.Format("20060102_150405") + "_1hr",
			Asset:     "BTC",
			Timeframe: domain.Timeframe1Hr,
			CreatedAt: created,
			Outcome:   domain.OutcomeCorrect,
		}
	}
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, resolvedAt(time.Now().UTC().AddDate(0, 0, -30))))
	require.NoError(t, store.Append(ctx, resolvedAt(time.Now().UTC().Add(-time.Hour))))

	tr := tracker.New(store, nilOracle{}, discard())
	h := NewPredictionHandler("BTC", tr, discard())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/stats?last_n_days=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.TotalPredictions)
}

func TestHealthIncludesSnapshotAge(t *testing.T) {
	h := NewHealthHandler(staticSnapshots{a: sampleAnalysis(), ok: true})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Contains(t, got, "last_analysis")
}
