package repo

import (
	"context"
	"sync"
)

// MemoryRepo is the in-process dismissal store.
type MemoryRepo struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sets: make(map[string]map[string]struct{})}
}

func (r *MemoryRepo) Dismiss(_ context.Context, viewerID, candidateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[viewerID]
	if !ok {
		set = make(map[string]struct{})
		r.sets[viewerID] = set
	}
	set[candidateID] = struct{}{}
	return nil
}

func (r *MemoryRepo) ListDismissed(_ context.Context, viewerID string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.sets[viewerID]))
	for id := range r.sets[viewerID] {
		out[id] = struct{}{}
	}
	return out, nil
}
