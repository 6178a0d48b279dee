package signal

import (
	"fmt"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/stats"
)

// Indicator votes run 1 (strong sell) to 5 (strong buy).
const (
	voteStrongSell = 1.0
	voteSell       = 2.0
	voteHold       = 3.0
	voteBuy        = 4.0
	voteStrongBuy  = 5.0
)

// Technical votes each indicator it can compute from the history and
// averages the votes into a stance. Indicators without enough bars
// simply abstain.
type Technical struct{}

func NewTechnical() *Technical { return &Technical{} }

// Snapshot computes the technical stance from candle history, oldest
// bar first. At least 15 bars are needed for the RSI to vote.
func (t *Technical) Snapshot(history []domain.Candle) (domain.TechnicalSnapshot, error) {
	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}

	var votes []float64
	rsi, rsiOK := rsi14(closes)
	if rsiOK {
		votes = append(votes, rsiVote(rsi))
	}
	if v, ok := maCrossVote(closes); ok {
		votes = append(votes, v)
	}
	if v, ok := macdVote(closes); ok {
		votes = append(votes, v)
	}
	if len(votes) == 0 {
		return domain.TechnicalSnapshot{}, fmt.Errorf("signal: %d bars is too short for any indicator: %w",
			len(history), domain.ErrNoData)
	}

	avg := stats.Mean(votes)
	var label domain.TradeLabel
	switch {
	case avg >= 4.5:
		label = domain.TradeStrongBuy
	case avg >= 3.5:
		label = domain.TradeBuy
	case avg <= 1.5:
		label = domain.TradeStrongSell
	case avg <= 2.5:
		label = domain.TradeSell
	default:
		label = domain.TradeNeutral
	}

	return domain.TechnicalSnapshot{
		Signal:     label,
		Confidence: stats.Clamp01(1 - stats.PopStdDev(votes)/2),
		RSI:        rsi,
	}, nil
}

// rsi14 is Wilder's RSI over the last 14 deltas.
func rsi14(closes []float64) (float64, bool) {
	const period = 14
	if len(closes) < period+1 {
		return 0, false
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if losses == 0 {
		if gains == 0 {
			// Flat tape carries no momentum information.
			return 50, true
		}
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}

func rsiVote(rsi float64) float64 {
	switch {
	case rsi < 30:
		return voteStrongBuy
	case rsi < 45:
		return voteBuy
	case rsi > 70:
		return voteStrongSell
	case rsi > 55:
		return voteSell
	}
	return voteHold
}

func maCrossVote(closes []float64) (float64, bool) {
	if len(closes) < 50 {
		return 0, false
	}
	short := stats.Mean(closes[len(closes)-20:])
	long := stats.Mean(closes[len(closes)-50:])
	if long <= 0 {
		return 0, false
	}
	switch {
	case short > long*1.02:
		return voteStrongBuy, true
	case short > long:
		return voteBuy, true
	case short < long*0.98:
		return voteStrongSell, true
	case short < long:
		return voteSell, true
	}
	return voteHold, true
}

func macdVote(closes []float64) (float64, bool) {
	if len(closes) < 35 {
		return 0, false
	}
	macd := emaSeries(closes, 12)
	slow := emaSeries(closes, 26)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = macd[i] - slow[i]
	}
	signalLine := emaSeries(diff, 9)

	last := len(closes) - 1
	hist := diff[last] - signalLine[last]
	switch {
	case hist > 0 && diff[last] > 0:
		return voteStrongBuy, true
	case hist > 0:
		return voteBuy, true
	case hist < 0 && diff[last] < 0:
		return voteStrongSell, true
	case hist < 0:
		return voteSell, true
	}
	return voteHold, true
}

func emaSeries(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i]*k + out[i-1]*(1-k)
	}
	return out
}
