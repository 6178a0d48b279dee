package analysis

import (
	"sync"

	"github.com/quantary/forecastbot/internal/domain"
)

// Holder keeps the latest analysis snapshot for in-process readers.
// Load returns false until the first Store.
type Holder struct {
	mu   sync.RWMutex
	last *domain.Analysis
}

func NewHolder() *Holder { return &Holder{} }

func (h *Holder) Store(a domain.Analysis) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &a
}

func (h *Holder) Load() (domain.Analysis, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return domain.Analysis{}, false
	}
	return *h.last, true
}
