package predictor

import (
	"fmt"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

// Source produces one price prediction from a candle history, oldest
// bar first.
type Source interface {
	Name() string
	Predict(history []domain.Candle) (float64, error)
}

// momentumSource extrapolates the recency-weighted bar-to-bar return.
// Recent bars count more, so it reacts like a short sequence model.
type momentumSource struct{}

func (momentumSource) Name() string { return "momentum" }

func (momentumSource) Predict(history []domain.Candle) (float64, error) {
	if len(history) < 3 {
		return 0, fmt.Errorf("predictor: momentum needs 3 bars, got %d: %w", len(history), domain.ErrNoData)
	}
	var weighted, weights float64
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Close
		if prev <= 0 {
			continue
		}
		w := float64(i)
		weighted += w * (history[i].Close - prev) / prev
		weights += w
	}
	if weights == 0 {
		return 0, fmt.Errorf("predictor: momentum: %w", domain.ErrNoData)
	}
	last := history[len(history)-1].Close
	return last * (1 + weighted/weights), nil
}

// reversionSource pulls the price partway back toward its recent mean.
type reversionSource struct{}

func (reversionSource) Name() string { return "reversion" }

func (reversionSource) Predict(history []domain.Candle) (float64, error) {
	if len(history) < 5 {
		return 0, fmt.Errorf("predictor: reversion needs 5 bars, got %d: %w", len(history), domain.ErrNoData)
	}
	window := history
	if len(window) > 20 {
		window = window[len(window)-20:]
	}
	closes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
	}
	mean := stats.Mean(closes)
	last := history[len(history)-1].Close
	return last + (mean-last)*0.3, nil
}

// trendSource compares the short moving average against the long one
// and projects half the gap onto the last close.
type trendSource struct{}

func (trendSource) Name() string { return "trend" }

func (trendSource) Predict(history []domain.Candle) (float64, error) {
	if len(history) < 21 {
		return 0, fmt.Errorf("predictor: trend needs 21 bars, got %d: %w", len(history), domain.ErrNoData)
	}
	sma7 := smaClose(history, 7)
	sma21 := smaClose(history, 21)
	if sma21 <= 0 {
		return 0, fmt.Errorf("predictor: trend: %w", domain.ErrNoData)
	}
	factor := (sma7 - sma21) / sma21
	last := history[len(history)-1].Close
	return last * (1 + factor*0.5), nil
}

func smaClose(history []domain.Candle, n int) float64 {
	if len(history) < n || n <= 0 {
		return 0
	}
	var sum float64
	for _, c := range history[len(history)-n:] {
		sum += c.Close
	}
	return sum / float64(n)
}
