// Package cache holds the terminal's in-memory and redis-backed derived
// state: the grouped-catalog snapshot and the out-of-stock index.
package cache

import (
	"sync"
	"time"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/unit"
)

// GroupSnapshotCache caches the last built unit-group index together with a
// by-id product snapshot. It exists for two reasons: the checkout path must
// not rebuild grouping on every sale, and the optimistic applier falls back
// to this snapshot when a store read misses during a partial sync race.
//
// Writers must call Invalidate (or Set) whenever the catalog changes; reads
// after the TTL report a miss so callers rebuild from the store.
type GroupSnapshotCache struct {
	mu       sync.RWMutex
	idx      *unit.GroupIndex
	products map[int64]model.Product
	builtAt  time.Time
	ttl      time.Duration
}

func NewGroupSnapshotCache(ttl time.Duration) *GroupSnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &GroupSnapshotCache{ttl: ttl}
}

// Set replaces the snapshot wholesale.
func (c *GroupSnapshotCache) Set(idx *unit.GroupIndex, products []model.Product) {
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = idx
	c.products = byID
	c.builtAt = time.Now()
}

// Index returns the cached group index, or ok=false when empty or expired.
func (c *GroupSnapshotCache) Index() (*unit.GroupIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.idx == nil || time.Since(c.builtAt) > c.ttl {
		return nil, false
	}
	return c.idx, true
}

// Product returns the cached product snapshot for id. Unlike Index it ignores
// the TTL: a stale OnHand is still a better fallback than none at all.
func (c *GroupSnapshotCache) Product(id int64) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Invalidate drops the snapshot entirely.
func (c *GroupSnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = nil
	c.products = nil
	c.builtAt = time.Time{}
}
