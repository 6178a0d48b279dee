package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quantary/forecastbot/internal/domain"
)

// SnapshotReader is the in-process view of the latest analysis.
type SnapshotReader interface {
	Load() (domain.Analysis, bool)
}

// AnalysisHandler serves the latest snapshot and its threshold
// markets. When the in-process holder is empty (API-only deployments)
// it falls back to the shared cache.
type AnalysisHandler struct {
	asset     string
	snapshots SnapshotReader
	cache     domain.AnalysisCache
	log       *slog.Logger
}

func NewAnalysisHandler(asset string, snapshots SnapshotReader, cache domain.AnalysisCache, log *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		asset:     asset,
		snapshots: snapshots,
		cache:     cache,
		log:       log.With(slog.String("handler", "analysis")),
	}
}

func (h *AnalysisHandler) load(r *http.Request) (domain.Analysis, bool) {
	if a, ok := h.snapshots.Load(); ok {
		return a, true
	}
	if h.cache == nil {
		return domain.Analysis{}, false
	}
	a, err := h.cache.GetAnalysis(r.Context(), h.asset)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Error("cache read failed", slog.String("error", err.Error()))
		}
		return domain.Analysis{}, false
	}
	return a, true
}

// GetAnalysis responds to GET /api/analysis.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(r)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no analysis available yet")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListMarkets responds to GET /api/markets. Without a filter the book
// is flattened across horizons and ordered best edge first; an
// optional ?timeframe= narrows it to one horizon.
func (h *AnalysisHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(r)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no analysis available yet")
		return
	}

	if v := r.URL.Query().Get("timeframe"); v != "" {
		tf, err := domain.ParseTimeframe(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown timeframe "+v)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"asset":     a.Asset,
			"timeframe": tf,
			"markets":   a.Markets[tf],
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":        a.Asset,
		"markets":      domain.RankMarkets(a.Markets),
		"by_timeframe": a.Markets,
	})
}
