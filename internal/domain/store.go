package domain

import (
	"context"
	"time"
)

// PredictionStore persists tracked predictions. Implementations must
// keep Resolve idempotent: a prediction with a non-pending outcome is
// never rewritten and Resolve reports false for it.
type PredictionStore interface {
	// Append stores a new prediction.
	Append(ctx context.Context, p Prediction) error

	// Get returns a prediction by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Prediction, error)

	// ListPendingDue returns pending predictions whose expiry is at or
	// before asOf, oldest first.
	ListPendingDue(ctx context.Context, asOf time.Time) ([]Prediction, error)

	// Resolve writes the outcome for a still-pending prediction and
	// reports whether a row was updated.
	Resolve(ctx context.Context, id string, r Resolution) (bool, error)

	// ListResolved returns resolved predictions matching the filter,
	// oldest first.
	ListResolved(ctx context.Context, f StatsFilter) ([]Prediction, error)

	// ListRecent returns the most recent predictions in any state,
	// newest first, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]Prediction, error)

	// ListResolvedBefore returns resolved predictions created before
	// the cutoff, for archival.
	ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]Prediction, error)
}
