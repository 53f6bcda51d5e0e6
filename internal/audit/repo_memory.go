package audit

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.

type MemoryRepo struct {
	mu      sync.Mutex
	records []Transition
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, t Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, t)
	return nil
}

func (r *MemoryRepo) Records() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.records))
	copy(out, r.records)
	return out
}
