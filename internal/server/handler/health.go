package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness plus the age of the newest snapshot.
type HealthHandler struct {
	startedAt time.Time
	snapshots SnapshotReader
}

func NewHealthHandler(snapshots SnapshotReader) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), snapshots: snapshots}
}

// HealthCheck responds to GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if a, ok := h.snapshots.Load(); ok {
		body["last_analysis"] = a.Timestamp
		body["analysis_age_seconds"] = int(time.Since(a.Timestamp).Seconds())
	}
	writeJSON(w, http.StatusOK, body)
}
