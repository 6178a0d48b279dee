package domain

import (
	"context"
	"time"
)

// PriceHistorySource yields recent candles for an asset, oldest first.
type PriceHistorySource interface {
	History(ctx context.Context, asset string, bars int) ([]Candle, error)
	SpotPrice(ctx context.Context, asset string) (float64, error)
}

// PriceOracle reports the price of an asset at a past instant, used to
// score expired predictions. A zero price with nil error means the
// oracle has no data yet; callers should retry later.
type PriceOracle interface {
	PriceAt(ctx context.Context, asset string, at time.Time) (float64, error)
}

// SentimentSource reports market sentiment.
type SentimentSource interface {
	Sentiment(ctx context.Context) (SentimentSnapshot, error)
}

// OrderbookSource reports aggregate book depth for an asset.
type OrderbookSource interface {
	Orderbook(ctx context.Context, asset string) (OrderbookSnapshot, error)
}
