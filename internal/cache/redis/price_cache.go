package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantary/forecastbot/internal/domain"
)

// priceTTL bounds how long a cached spot price is served; a refresh
// that dies must not leave a stale price behind forever.
const priceTTL = 10 * time.Minute

// PriceCache implements domain.PriceCache on plain string keys,
// "price:{asset}".
type PriceCache struct {
	rdb *redis.Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(asset string) string { return "price:" + asset }

func (pc *PriceCache) SetPrice(ctx context.Context, asset string, price float64) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := pc.rdb.Set(ctx, priceKey(asset), val, priceTTL).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", asset, err)
	}
	return nil
}

// GetPrice returns domain.ErrNotFound when no price is cached.
func (pc *PriceCache) GetPrice(ctx context.Context, asset string) (float64, error) {
	val, err := pc.rdb.Get(ctx, priceKey(asset)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", asset, err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse cached price %s: %w", asset, err)
	}
	return price, nil
}
