package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/tracker"
)

// PredictionHandler exposes the tracker's record over HTTP.
type PredictionHandler struct {
	asset   string
	tracker *tracker.Tracker
	log     *slog.Logger
}

func NewPredictionHandler(asset string, tr *tracker.Tracker, log *slog.Logger) *PredictionHandler {
	return &PredictionHandler{
		asset:   asset,
		tracker: tr,
		log:     log.With(slog.String("handler", "predictions")),
	}
}

// ListRecent responds to GET /api/predictions/recent?limit=N.
func (h *PredictionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > 200 {
		limit = 200
	}

	preds, err := h.tracker.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("recent predictions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": preds})
}

// GetStats responds to GET /api/predictions/stats. Optional
// ?timeframe= and ?last_n_days= narrow the summary;
// ?by_timeframe=true returns the per-horizon breakdown.
func (h *PredictionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("by_timeframe") == "true" {
		byTF, err := h.tracker.StatisticsByTimeframe(r.Context(), h.asset)
		if err != nil {
			h.log.Error("statistics failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to compute statistics")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"asset": h.asset, "timeframes": byTF})
		return
	}

	filter := domain.StatsFilter{Asset: h.asset}
	if v := q.Get("timeframe"); v != "" {
		tf, err := domain.ParseTimeframe(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown timeframe "+v)
			return
		}
		filter.Timeframe = tf
	}
	if days := queryInt(r, "last_n_days", 0); days > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -days)
	}

	s, err := h.tracker.Statistics(r.Context(), filter)
	if err != nil {
		h.log.Error("statistics failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, s)
}
