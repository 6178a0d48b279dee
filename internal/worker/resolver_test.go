package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/store/memory"
	"github.com/quantary/forecastbot/internal/tracker"
)

type heldLocks struct{ held bool }

func (l *heldLocks) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func(context.Context) error { return nil }, nil
}

type fixedOracle struct{ price float64 }

func (o fixedOracle) PriceAt(context.Context, string, time.Time) (float64, error) {
	return o.price, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *captureBus) Publish(_ context.Context, _ string, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *captureBus) Subscribe(context.Context, string) (<-chan domain.Event, func(), error) {
	return nil, func() {}, nil
}

func expiredPrediction(t *testing.T, store *memory.PredictionStore) *tracker.Tracker {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := tracker.New(store, fixedOracle{price: 91600}, log)

	created := time.Now().UTC().Add(-3 * time.Hour)
	require.NoError(t, store.Append(context.Background(), domain.Prediction{
		ID: "p1", Asset: "BTC", Timeframe: domain.Timeframe1Hr, ModelType: "ensemble",
		CreatedAt: created, ExpiryTime: created.Add(time.Hour),
		CurrentPrice: 90000, PredictedPrice: 91800, Confidence: 0.8, PredictedChangePct: 2.0,
		Outcome: domain.OutcomePending,
	}))
	return tr
}

func TestSweepResolvesAndPublishes(t *testing.T) {
	store := memory.NewPredictionStore()
	tr := expiredPrediction(t, store)
	bus := &captureBus{}

	r := NewResolver(tr, &heldLocks{}, bus, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.sweep(context.Background())

	require.Len(t, bus.events, 1)
	assert.Equal(t, "prediction_resolved", bus.events[0].Type)

	stored, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCorrect, stored.Outcome)
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	store := memory.NewPredictionStore()
	tr := expiredPrediction(t, store)
	bus := &captureBus{}

	r := NewResolver(tr, &heldLocks{held: true}, bus, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.sweep(context.Background())

	assert.Empty(t, bus.events)
	stored, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, stored.Outcome)
}
