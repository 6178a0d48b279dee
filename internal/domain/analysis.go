package domain

import "time"

// Analysis is one full refresh of the engine's view of an asset:
// multi-horizon forecasts, generated threshold markets per horizon,
// and the blended overall signal.
type Analysis struct {
	Timestamp    time.Time                       `json:"timestamp"`
	Asset        string                          `json:"asset"`
	CurrentPrice float64                         `json:"current_price"`
	Timeframes   AllForecasts                    `json:"timeframes"`
	Markets      map[Timeframe][]ThresholdMarket `json:"markets"`
	Overall      OverallSignal                   `json:"overall_signal"`
}
