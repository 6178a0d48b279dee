package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantary/forecastbot/internal/domain"
)

const predictionColumns = `id, asset, timeframe, model_type, created_at, expiry_time,
	current_price, predicted_price, confidence, predicted_change_pct,
	outcome, actual_price, actual_change_pct, abs_error, error_pct, resolved_at`

// PredictionStore persists predictions in the predictions table. A
// NULL outcome marks a pending prediction, which makes resolution a
// single conditional UPDATE.
type PredictionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PredictionStore = (*PredictionStore)(nil)

func NewPredictionStore(client *Client) *PredictionStore {
	return &PredictionStore{pool: client.Pool()}
}

func (s *PredictionStore) Append(ctx context.Context, p domain.Prediction) error {
	const q = `
		INSERT INTO predictions (
			id, asset, timeframe, model_type, created_at, expiry_time,
			current_price, predicted_price, confidence, predicted_change_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, q,
		p.ID, p.Asset, string(p.Timeframe), p.ModelType, p.CreatedAt, p.ExpiryTime,
		p.CurrentPrice, p.PredictedPrice, p.Confidence, p.PredictedChangePct)
	if err != nil {
		return fmt.Errorf("postgres: insert prediction %s: %w", p.ID, err)
	}
	return nil
}

func (s *PredictionStore) Get(ctx context.Context, id string) (domain.Prediction, error) {
	q := fmt.Sprintf("SELECT %s FROM predictions WHERE id = $1", predictionColumns)
	p, err := scanPrediction(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Prediction{}, fmt.Errorf("postgres: prediction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("postgres: get prediction %s: %w", id, err)
	}
	return p, nil
}

func (s *PredictionStore) ListPendingDue(ctx context.Context, asOf time.Time) ([]domain.Prediction, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE outcome IS NULL AND expiry_time <= $1
		ORDER BY expiry_time ASC`, predictionColumns)
	return s.list(ctx, q, asOf)
}

func (s *PredictionStore) Resolve(ctx context.Context, id string, r domain.Resolution) (bool, error) {
	const q = `
		UPDATE predictions
		SET outcome = $2, actual_price = $3, actual_change_pct = $4,
		    abs_error = $5, error_pct = $6, resolved_at = $7
		WHERE id = $1 AND outcome IS NULL`
	tag, err := s.pool.Exec(ctx, q, id,
		string(r.Outcome), r.ActualPrice, r.ActualChangePct, r.AbsError, r.ErrorPct, r.ResolvedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: resolve prediction %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PredictionStore) ListResolved(ctx context.Context, f domain.StatsFilter) ([]domain.Prediction, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM predictions WHERE outcome IS NOT NULL", predictionColumns)
	var args []any
	if f.Asset != "" {
		args = append(args, f.Asset)
		fmt.Fprintf(&sb, " AND asset = $%d", len(args))
	}
	if f.Timeframe != "" {
		args = append(args, string(f.Timeframe))
		fmt.Fprintf(&sb, " AND timeframe = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at ASC")
	return s.list(ctx, sb.String(), args...)
}

func (s *PredictionStore) ListRecent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM predictions
		ORDER BY created_at DESC
		LIMIT $1`, predictionColumns)
	return s.list(ctx, q, limit)
}

func (s *PredictionStore) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Prediction, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM predictions
		WHERE outcome IS NOT NULL AND created_at < $1
		ORDER BY created_at ASC`, predictionColumns)
	return s.list(ctx, q, cutoff)
}

func (s *PredictionStore) list(ctx context.Context, q string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query predictions: %w", err)
	}
	defer rows.Close()

	var out []domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate predictions: %w", err)
	}
	return out, nil
}

func scanPrediction(row pgx.Row) (domain.Prediction, error) {
	var (
		p            domain.Prediction
		timeframe    string
		outcome      *string
		actualPrice  *float64
		actualChange *float64
		absErr       *float64
		errPct       *float64
		resolvedAt   *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Asset, &timeframe, &p.ModelType, &p.CreatedAt, &p.ExpiryTime,
		&p.CurrentPrice, &p.PredictedPrice, &p.Confidence, &p.PredictedChangePct,
		&outcome, &actualPrice, &actualChange, &absErr, &errPct, &resolvedAt,
	)
	if err != nil {
		return domain.Prediction{}, err
	}
	p.Timeframe = domain.Timeframe(timeframe)
	p.Outcome = domain.OutcomePending
	if outcome != nil {
		p.Outcome = domain.Outcome(*outcome)
	}
	if actualPrice != nil {
		p.ActualPrice = *actualPrice
	}
	if actualChange != nil {
		p.ActualChangePct = *actualChange
	}
	if absErr != nil {
		p.AbsError = *absErr
	}
	if errPct != nil {
		p.ErrorPct = *errPct
	}
	p.ResolvedAt = resolvedAt
	return p, nil
}
