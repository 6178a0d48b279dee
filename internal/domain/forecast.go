package domain

import "time"

// Candle is a single OHLCV bar of price history, oldest first in any
// slice handed to the predictors.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Direction classifies the predicted percent change of a forecast.
type Direction string

const (
	DirectionStrongBullish Direction = "strong_bullish"
	DirectionBullish       Direction = "bullish"
	DirectionNeutral       Direction = "neutral"
	DirectionBearish       Direction = "bearish"
	DirectionStrongBearish Direction = "strong_bearish"
)

// DirectionFor maps a predicted percent change onto a direction label.
func DirectionFor(changePct float64) Direction {
	switch {
	case changePct > 1.0:
		return DirectionStrongBullish
	case changePct > 0.2:
		return DirectionBullish
	case changePct < -1.0:
		return DirectionStrongBearish
	case changePct < -0.2:
		return DirectionBearish
	}
	return DirectionNeutral
}

// TradeLabel classifies a forecast (or an aggregate signal) as a
// trading stance rather than a market direction.
type TradeLabel string

const (
	TradeStrongBuy  TradeLabel = "strong_buy"
	TradeBuy        TradeLabel = "buy"
	TradeNeutral    TradeLabel = "neutral"
	TradeSell       TradeLabel = "sell"
	TradeStrongSell TradeLabel = "strong_sell"
)

// TradeLabelFor maps a weighted signal value in [-1, 1] onto a stance.
func TradeLabelFor(v float64) TradeLabel {
	switch {
	case v > 0.3:
		return TradeStrongBuy
	case v > 0.1:
		return TradeBuy
	case v < -0.3:
		return TradeStrongSell
	case v < -0.1:
		return TradeSell
	}
	return TradeNeutral
}

// Forecast is a single price prediction against a known current price.
// ModelsUsed names the prediction sources that contributed; it is
// empty for fallback forecasts no source produced.
type Forecast struct {
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     float64   `json:"confidence"`
	ChangePct      float64   `json:"change_pct"`
	Direction      Direction `json:"direction"`
	ModelsUsed     []string  `json:"models_used,omitempty"`
}

// NewForecast derives the change percentage and direction from the
// predicted and current prices. ChangePct is zero when the current
// price is not positive.
func NewForecast(current, predicted, confidence float64) Forecast {
	f := Forecast{
		CurrentPrice:   current,
		PredictedPrice: predicted,
		Confidence:     confidence,
	}
	if current > 0 {
		f.ChangePct = (predicted - current) / current * 100
	}
	f.Direction = DirectionFor(f.ChangePct)
	return f
}

// ForecastWeights records the blend a horizon applied, for audit.
type ForecastWeights struct {
	Model     float64 `json:"model"`
	Technical float64 `json:"technical"`
	Decay     float64 `json:"decay"`
}

// TimeframeForecast is a forecast projected onto one horizon. Err is
// set when the horizon failed to produce a forecast; the embedded
// Forecast then carries the current price with zero confidence.
type TimeframeForecast struct {
	Forecast
	Timeframe  Timeframe       `json:"timeframe"`
	Hours      float64         `json:"hours"`
	ExpiryTime time.Time       `json:"expiry_time"`
	Weights    ForecastWeights `json:"weights"`
	Err        string          `json:"error,omitempty"`
}

// AllForecasts maps every timeframe to its forecast for one refresh.
type AllForecasts map[Timeframe]TimeframeForecast
