package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/tracker"
)

// ChannelPredictions is the bus channel resolution events land on.
const ChannelPredictions = "predictions"

// sweepLock names the distributed lock that keeps concurrent workers
// from double-sweeping.
const sweepLock = "prediction-sweep"

// Resolver periodically scores expired predictions. With a lock
// manager configured only one instance sweeps at a time; the others
// skip the tick.
type Resolver struct {
	tracker  *tracker.Tracker
	locks    domain.LockManager
	bus      domain.SignalBus
	interval time.Duration
	log      *slog.Logger
}

func NewResolver(tr *tracker.Tracker, locks domain.LockManager, bus domain.SignalBus, interval time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{
		tracker:  tr,
		locks:    locks,
		bus:      bus,
		interval: interval,
		log:      log.With(slog.String("component", "resolver")),
	}
}

// Run sweeps once immediately, then on every tick until the context
// ends.
func (r *Resolver) Run(ctx context.Context) error {
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("resolver stopping")
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Resolver) sweep(ctx context.Context) {
	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, sweepLock, r.interval)
		if errors.Is(err, domain.ErrLockHeld) {
			r.log.Debug("sweep held elsewhere, skipping")
			return
		}
		if err != nil {
			r.log.Error("lock acquire failed", slog.String("error", err.Error()))
			return
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.log.Warn("lock release failed", slog.String("error", err.Error()))
			}
		}()
	}

	resolved, err := r.tracker.CheckExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Error("sweep failed", slog.String("error", err.Error()))
		return
	}
	if len(resolved) == 0 {
		return
	}
	r.log.Info("sweep resolved predictions", slog.Int("count", len(resolved)))

	if r.bus == nil {
		return
	}
	for _, p := range resolved {
		ev := domain.Event{
			ID:      uuid.New().String(),
			Type:    "prediction_resolved",
			Asset:   p.Asset,
			At:      time.Now().UTC(),
			Payload: p,
		}
		if err := r.bus.Publish(ctx, ChannelPredictions, ev); err != nil {
			r.log.Warn("bus publish failed", slog.String("error", err.Error()))
		}
	}
}
