// Package worker holds the periodic loops: analysis refreshes and the
// resolution sweep over expired predictions.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantary/forecastbot/internal/analysis"
	"github.com/quantary/forecastbot/internal/tracker"
)

// Refresher rebuilds the analysis snapshot on an interval and records
// every produced forecast with the tracker.
type Refresher struct {
	service  *analysis.Service
	tracker  *tracker.Tracker
	asset    string
	interval time.Duration
	log      *slog.Logger
}

func NewRefresher(service *analysis.Service, tr *tracker.Tracker, asset string, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		service:  service,
		tracker:  tr,
		asset:    asset,
		interval: interval,
		log:      log.With(slog.String("component", "refresher")),
	}
}

// Run refreshes once immediately, then on every tick until the context
// ends.
func (r *Refresher) Run(ctx context.Context) error {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher stopping")
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	a, err := r.service.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Error("refresh failed", slog.String("error", err.Error()))
		return
	}

	if r.tracker == nil {
		return
	}
	for _, f := range a.Timeframes {
		if f.Err != "" {
			continue
		}
		if _, err := r.tracker.Record(ctx, r.asset, "ensemble", f); err != nil {
			r.log.Error("record failed",
				slog.String("timeframe", f.Timeframe.String()),
				slog.String("error", err.Error()))
		}
	}
}
