package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantary/forecastbot/internal/domain"
)

// analysisTTL keeps a crashed worker's last snapshot readable long
// enough for the API tier to notice the gap.
const analysisTTL = 30 * time.Minute

// AnalysisCache mirrors the latest analysis snapshot as a JSON blob at
// "analysis:{asset}".
type AnalysisCache struct {
	rdb *redis.Client
}

var _ domain.AnalysisCache = (*AnalysisCache)(nil)

func NewAnalysisCache(c *Client) *AnalysisCache {
	return &AnalysisCache{rdb: c.Underlying()}
}

func analysisKey(asset string) string { return "analysis:" + asset }

func (ac *AnalysisCache) SetAnalysis(ctx context.Context, a domain.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis: marshal analysis %s: %w", a.Asset, err)
	}
	if err := ac.rdb.Set(ctx, analysisKey(a.Asset), data, analysisTTL).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", a.Asset, err)
	}
	return nil
}

// GetAnalysis returns domain.ErrNotFound when no snapshot is cached.
func (ac *AnalysisCache) GetAnalysis(ctx context.Context, asset string) (domain.Analysis, error) {
	data, err := ac.rdb.Get(ctx, analysisKey(asset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Analysis{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("redis: get analysis %s: %w", asset, err)
	}
	var a domain.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Analysis{}, fmt.Errorf("redis: unmarshal analysis %s: %w", asset, err)
	}
	return a, nil
}
