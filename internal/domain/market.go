package domain

import "sort"

// Recommendation is the suggested side for a threshold market.
type Recommendation string

const (
	RecommendBuyYes Recommendation = "BUY_YES"
	RecommendBuyNo  Recommendation = "BUY_NO"
	RecommendSkip   Recommendation = "SKIP"
)

// Strength grades how far the winning side sits from even odds. SKIP
// markets are graded WEAK.
type Strength string

const (
	StrengthStrong Strength = "STRONG"
	StrengthGood   Strength = "GOOD"
	StrengthWeak   Strength = "WEAK"
)

// ThresholdMarket is one "will price close above T" market evaluated
// against a forecast. YesProbability and NoProbability sum to 100 up
// to rounding; Edge is the winning probability minus 50.
type ThresholdMarket struct {
	Question       string         `json:"question"`
	Timeframe      Timeframe      `json:"timeframe"`
	Threshold      float64        `json:"threshold"`
	YesProbability float64        `json:"yes_probability"`
	NoProbability  float64        `json:"no_probability"`
	Recommendation Recommendation `json:"recommendation"`
	Strength       Strength       `json:"strength,omitempty"`
	Edge           float64        `json:"edge"`
}

// RankMarkets flattens a per-timeframe book into one list ordered best
// edge first. Horizons are visited in ascending order so equal edges
// keep a stable, shortest-first placement.
func RankMarkets(byTF map[Timeframe][]ThresholdMarket) []ThresholdMarket {
	var out []ThresholdMarket
	for _, tf := range Timeframes() {
		out = append(out, byTF[tf]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Edge > out[j].Edge })
	return out
}
