// Package memory holds an in-process PredictionStore used when no
// database is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
)

type PredictionStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Prediction
	order []string // insertion order
}

var _ domain.PredictionStore = (*PredictionStore)(nil)

func NewPredictionStore() *PredictionStore {
	return &PredictionStore{byID: make(map[string]domain.Prediction)}
}

func (s *PredictionStore) Append(_ context.Context, p domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[p.ID]; !dup {
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
	return nil
}

func (s *PredictionStore) Get(_ context.Context, id string) (domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.Prediction{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *PredictionStore) ListPendingDue(_ context.Context, asOf time.Time) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, id := range s.order {
		p := s.byID[id]
		if p.Outcome == domain.OutcomePending && !p.ExpiryTime.After(asOf) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryTime.Before(out[j].ExpiryTime) })
	return out, nil
}

func (s *PredictionStore) Resolve(_ context.Context, id string, r domain.Resolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Outcome != domain.OutcomePending {
		return false, nil
	}
	p.ActualPrice = r.ActualPrice
	p.ActualChangePct = r.ActualChangePct
	p.AbsError = r.AbsError
	p.ErrorPct = r.ErrorPct
	p.Outcome = r.Outcome
	resolvedAt := r.ResolvedAt
	p.ResolvedAt = &resolvedAt
	s.byID[id] = p
	return true, nil
}

func (s *PredictionStore) ListResolved(_ context.Context, f domain.StatsFilter) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, id := range s.order {
		p := s.byID[id]
		if !p.Resolved() {
			continue
		}
		if f.Asset != "" && p.Asset != f.Asset {
			continue
		}
		if f.Timeframe != "" && p.Timeframe != f.Timeframe {
			continue
		}
		if !f.Since.IsZero() && p.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PredictionStore) ListRecent(_ context.Context, limit int) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Prediction, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

func (s *PredictionStore) ListResolvedBefore(_ context.Context, cutoff time.Time) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, id := range s.order {
		p := s.byID[id]
		if p.Resolved() && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}
