package cache

import (
	"context"
	"log"
	"time"
)

// #region layered

// Layered puts the memory cache in front of a persistent store. L2 hits are
// promoted into L1 with their remaining lifetime.
type Layered struct {
	l1 *Memory
	l2 Cache
}

// NewLayered returns a two-level cache. l2 may be nil.
func NewLayered(l1 *Memory, l2 Cache) *Layered {
	return &Layered{l1: l1, l2: l2}
}

// Get checks L1, then L2.
func (c *Layered) Get(ctx context.Context, queryHash string) (Entry, bool) {
	if e, ok := c.l1.Get(ctx, queryHash); ok {
		return e, true
	}
	if c.l2 == nil {
		return Entry{}, false
	}
	e, ok := c.l2.Get(ctx, queryHash)
	if !ok || e.Expired(c.l1.now()) {
		return Entry{}, false
	}
	c.l1.put(queryHash, e)
	log.Printf("[CACHE] promoted %s to memory", short(queryHash))
	return e, true
}

// Put writes through to both levels.
func (c *Layered) Put(ctx context.Context, queryHash string, e Entry, ttl time.Duration) {
	c.l1.Put(ctx, queryHash, e, ttl)
	if c.l2 != nil {
		c.l2.Put(ctx, queryHash, e, ttl)
	}
}

// Sweep reclaims expired L1 entries.
func (c *Layered) Sweep() int {
	return c.l1.Sweep()
}

// #endregion layered

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
