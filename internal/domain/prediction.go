package domain

import "time"

// Outcome is the resolution state of a tracked prediction.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// Prediction is one stored forecast awaiting (or past) resolution.
// Monetary fields are rounded to two decimals on store, confidence to
// three.
type Prediction struct {
	ID                 string    `json:"id"`
	Asset              string    `json:"asset"`
	Timeframe          Timeframe `json:"timeframe"`
	ModelType          string    `json:"model_type"`
	CreatedAt          time.Time `json:"created_at"`
	ExpiryTime         time.Time `json:"expiry_time"`
	CurrentPrice       float64   `json:"current_price"`
	PredictedPrice     float64   `json:"predicted_price"`
	Confidence         float64   `json:"confidence"`
	PredictedChangePct float64   `json:"predicted_change_pct"`

	Outcome         Outcome    `json:"outcome"`
	ActualPrice     float64    `json:"actual_price,omitempty"`
	ActualChangePct float64    `json:"actual_change_pct,omitempty"`
	AbsError        float64    `json:"abs_error,omitempty"`
	ErrorPct        float64    `json:"error_pct,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether the prediction has a final outcome.
func (p Prediction) Resolved() bool { return p.Outcome != OutcomePending }

// Resolution carries the values written when a pending prediction is
// scored against its realised price.
type Resolution struct {
	ActualPrice     float64
	ActualChangePct float64
	AbsError        float64
	ErrorPct        float64
	Outcome         Outcome
	ResolvedAt      time.Time
}

// StatsFilter narrows a statistics query. Zero values mean no filter.
// Since keeps only predictions created at or after it.
type StatsFilter struct {
	Asset     string
	Timeframe Timeframe
	Since     time.Time
}

// Statistics summarises resolved predictions. When no resolved
// predictions match, TotalPredictions is zero and Error explains why.
type Statistics struct {
	TotalPredictions int     `json:"total_predictions"`
	Correct          int     `json:"correct,omitempty"`
	Incorrect        int     `json:"incorrect,omitempty"`
	WinRate          float64 `json:"win_rate,omitempty"`
	AvgErrorUSD      float64 `json:"avg_error_usd,omitempty"`
	MedianErrorUSD   float64 `json:"median_error_usd,omitempty"`
	AvgErrorPct      float64 `json:"avg_error_pct,omitempty"`
	MedianErrorPct   float64 `json:"median_error_pct,omitempty"`
	BrierScore       float64 `json:"brier_score,omitempty"`
	TotalPnLPct      float64 `json:"total_pnl_pct,omitempty"`
	AvgPnLPerTrade   float64 `json:"avg_pnl_per_trade,omitempty"`
	AvgConfidence    float64 `json:"avg_confidence,omitempty"`
	ConfidenceStd    float64 `json:"confidence_std,omitempty"`
	Error            string  `json:"error,omitempty"`
}
