package domain

import (
	"context"
	"time"
)

// PriceCache holds recent spot prices keyed by asset.
type PriceCache interface {
	SetPrice(ctx context.Context, asset string, price float64) error
	GetPrice(ctx context.Context, asset string) (float64, error)
}

// AnalysisCache mirrors the latest analysis snapshot so other
// processes can read it without hitting the upstream APIs.
type AnalysisCache interface {
	SetAnalysis(ctx context.Context, a Analysis) error
	GetAnalysis(ctx context.Context, asset string) (Analysis, error)
}

// LockManager hands out distributed locks. Acquire returns ErrLockHeld
// when another owner holds the lock, otherwise an unlock func that
// releases only this acquisition.
type LockManager interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// Event is a message published on the signal bus.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Asset   string    `json:"asset"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// SignalBus fans events out to interested consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, ev Event) error
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
}
