package domain

// TechnicalSnapshot summarises indicator state as a trading stance.
type TechnicalSnapshot struct {
	Signal     TradeLabel `json:"signal"`
	Confidence float64    `json:"confidence"`
	RSI        float64    `json:"rsi,omitempty"`
}

// SentimentSnapshot carries the fear & greed index, 0 to 100.
type SentimentSnapshot struct {
	FearGreedIndex float64 `json:"fear_greed_index"`
	Classification string  `json:"classification,omitempty"`
}

// OrderbookSnapshot aggregates top-of-book depth on each side.
type OrderbookSnapshot struct {
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
}

// SignalComponent is one contributor to an aggregate signal.
type SignalComponent struct {
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// OverallSignal is the blended stance across all available inputs.
// Score is Weighted rescaled onto 0..100.
type OverallSignal struct {
	Signal     TradeLabel                 `json:"signal"`
	Weighted   float64                    `json:"weighted"`
	Score      int                        `json:"score"`
	Confidence float64                    `json:"confidence"`
	Components map[string]SignalComponent `json:"components"`
}
