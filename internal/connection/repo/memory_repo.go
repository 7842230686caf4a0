package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
)

// MemoryRepo mirrors ConnectionRepo semantics in process: one record per
// unordered pair and version-checked writes.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]*entity.Connection
	byPair map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]*entity.Connection),
		byPair: make(map[string]string),
	}
}

func (r *MemoryRepo) GetConnection(_ context.Context, userA, userB string) (*entity.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := entity.PairKey(userA, userB)
	id, ok := r.byPair[key]
	if !ok {
		return nil, apperr.NotFound("connection", key)
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryRepo) GetConnectionByID(_ context.Context, id string) (*entity.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("connection", id)
	}
	return c.Clone(), nil
}

func (r *MemoryRepo) ListConnections(_ context.Context, userID string, filter entity.Filter) ([]*entity.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Connection
	for _, c := range r.byID {
		if c.Involves(userID) && filter.Match(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) SaveConnection(_ context.Context, c *entity.Connection) (*entity.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entity.PairKey(c.FromUserID, c.ToUserID)
	stored := c.Clone()

	if c.Version == 0 {
		if _, taken := r.byPair[key]; taken {
			return nil, fmt.Errorf("insert connection %s: %w", key, apperr.ErrConcurrencyConflict)
		}
		stored.Version = 1
		r.byID[c.ID] = stored
		r.byPair[key] = c.ID
		return stored.Clone(), nil
	}

	cur, ok := r.byID[c.ID]
	if !ok || cur.Version != c.Version {
		return nil, fmt.Errorf("update connection %s at version %d: %w", c.ID, c.Version, apperr.ErrConcurrencyConflict)
	}
	stored.Version = c.Version + 1
	r.byID[c.ID] = stored
	return stored.Clone(), nil
}
