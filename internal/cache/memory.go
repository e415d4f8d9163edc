package cache

import (
	"context"
	"log"
	"sync"
	"time"
)

// #region memory

// Memory is a concurrency-safe in-process cache with lazy expiry.
// Concurrent Puts for one key are last-write-wins.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty cache using the wall clock.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

// WithClock replaces the clock. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns the unexpired entry for queryHash and counts the use. Expired
// entries are removed on the way out.
func (m *Memory) Get(_ context.Context, queryHash string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[queryHash]
	if !ok {
		return Entry{}, false
	}
	if e.Expired(m.now()) {
		delete(m.entries, queryHash)
		return Entry{}, false
	}
	e.UsageCount++
	m.entries[queryHash] = e
	return e, true
}

// Put stores e for ttl. A non-positive ttl uses DefaultTTL.
func (m *Memory) Put(_ context.Context, queryHash string, e Entry, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[queryHash] = stamp(e, queryHash, m.now(), ttl)
}

// put stores an entry with its existing expiry, used for promotion.
func (m *Memory) put(queryHash string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[queryHash] = e
}

// Sweep drops every expired entry and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	if n > 0 {
		log.Printf("[CACHE] swept %d expired entries", n)
	}
	return n
}

// Len is the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// #endregion memory

func stamp(e Entry, queryHash string, now time.Time, ttl time.Duration) Entry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e.QueryHash = queryHash
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.ExpiresAt = now.Add(ttl)
	return e
}
