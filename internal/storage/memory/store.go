package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Joseph-Rai/translationapis/internal/storage"
)

// DefaultCapacity bounds how many refinements the store retains.
const DefaultCapacity = 1000

// Store is an in-memory RefinementStore holding the most recent records.
type Store struct {
	mu          sync.RWMutex
	refinements []*storage.Refinement
	capacity    int
}

var _ storage.RefinementStore = (*Store)(nil)

// New creates an in-memory store. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

func (s *Store) Save(ctx context.Context, r *storage.Refinement) error {
	if r.ID == "" {
		return fmt.Errorf("refinement id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.refinements = append(s.refinements, &cp)
	if over := len(s.refinements) - s.capacity; over > 0 {
		s.refinements = append([]*storage.Refinement(nil), s.refinements[over:]...)
	}
	return nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Refinement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.EffectiveLimit()
	var result []*storage.Refinement
	for i := len(s.refinements) - 1; i >= 0 && len(result) < limit; i-- {
		r := s.refinements[i]
		if opts.TenantID != "" && r.TenantID != opts.TenantID {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}
