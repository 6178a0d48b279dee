package domain

import "fmt"

// Timeframe identifies one of the fixed prediction horizons.
type Timeframe string

const (
	Timeframe15Min Timeframe = "15min"
	Timeframe1Hr   Timeframe = "1hr"
	Timeframe4Hr   Timeframe = "4hr"
	Timeframe24Hr  Timeframe = "24hr"
	Timeframe7D    Timeframe = "7d"
)

// Timeframes lists every supported horizon in ascending order.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe15Min, Timeframe1Hr, Timeframe4Hr, Timeframe24Hr, Timeframe7D}
}

// ParseTimeframe validates a timeframe label.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe15Min, Timeframe1Hr, Timeframe4Hr, Timeframe24Hr, Timeframe7D:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("domain: parse timeframe %q: %w", s, ErrInvalidInput)
}

func (t Timeframe) String() string { return string(t) }

// Hours returns the horizon length of the timeframe.
func (t Timeframe) Hours() float64 {
	switch t {
	case Timeframe15Min:
		return 0.25
	case Timeframe1Hr:
		return 1.0
	case Timeframe4Hr:
		return 4.0
	case Timeframe24Hr:
		return 24.0
	case Timeframe7D:
		return 168.0
	}
	return 0
}
