package network

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"

	connentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
)

// pairEntry is what the cache keeps for one unordered pair.
type pairEntry struct {
	Analysis Analysis
	// ShowPaths holds each side's ShowMutualConnections flag at compute time.
	ShowPaths map[string]bool
}

// PairCache memoizes analyses by canonical pair key. Concurrent misses for
// the same pair share one computation. Invalidate drops every entry by
// moving to a new key generation.
type PairCache struct {
	tc    *sfcache.TieredCache[string, pairEntry]
	ttl   time.Duration
	epoch atomic.Uint64
}

// NewPairCache builds an in-memory cache whose entries live for ttl.
func NewPairCache(ttl time.Duration) (*PairCache, error) {
	tc, err := sfcache.NewTiered[string, pairEntry](null.New[string, pairEntry](), sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}
	return &PairCache{tc: tc, ttl: ttl}, nil
}

// GetSet returns the entry for {a, b}, computing it with fn on a miss. hit
// reports whether fn was skipped.
func (c *PairCache) GetSet(ctx context.Context, a, b string, fn func(context.Context) (pairEntry, error)) (entry pairEntry, hit bool, err error) {
	if c == nil {
		e, err := fn(ctx)
		return e, false, err
	}
	hit = true
	entry, err = c.tc.GetSet(ctx, c.key(a, b), func(ctx context.Context) (pairEntry, error) {
		hit = false
		return fn(ctx)
	}, c.ttl)
	return entry, hit, err
}

// Invalidate makes every cached analysis stale.
func (c *PairCache) Invalidate() {
	if c == nil {
		return
	}
	c.epoch.Add(1)
}

func (c *PairCache) key(a, b string) string {
	return fmt.Sprintf("%d:%s", c.epoch.Load(), connentity.PairKey(a, b))
}
