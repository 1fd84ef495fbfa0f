package distance

import (
	"context"
	"math"
	"sync"
	"time"

	coredistance "github.com/cleanbear/dispatch/core/distance"
	"github.com/cleanbear/dispatch/core/model"
)

// Store is a cache backend. Implementations are best effort: a broken
// backend must degrade to misses, never to lookup errors.
type Store interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, minutes float64, ttl time.Duration)
}

// Cache memoizes successful travel-time lookups. Failures and sentinel
// values are never cached, so a degraded pair is retried next time.
type Cache struct {
	next  coredistance.Provider
	store Store
	ttl   time.Duration
}

// NewCache wraps next with the given backend.
func NewCache(next coredistance.Provider, store Store, ttl time.Duration) *Cache {
	return &Cache{next: next, store: store, ttl: ttl}
}

// TravelMinutes implements distance.Provider.
func (c *Cache) TravelMinutes(ctx context.Context, from, to model.Coordinate) (float64, error) {
	key := coredistance.PairKey(from, to)
	if m, ok := c.store.Get(ctx, key); ok {
		return m, nil
	}
	m, err := c.next.TravelMinutes(ctx, from, to)
	if err != nil {
		return m, err
	}
	if m >= 0 && m < coredistance.SentinelMinutes && !math.IsNaN(m) {
		c.store.Set(ctx, key, m, c.ttl)
	}
	return m, nil
}

type memoryEntry struct {
	minutes float64
	expires time.Time
}

// MemoryStore is a bounded in-process Store with lazy expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	max     int
}

// NewMemoryStore bounds the store to max entries (minimum 1).
func NewMemoryStore(max int) *MemoryStore {
	if max < 1 {
		max = 1
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), max: max}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, key)
		return 0, false
	}
	return e.minutes, true
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, minutes float64, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.max {
		s.evictLocked()
	}
	s.entries[key] = memoryEntry{minutes: minutes, expires: time.Now().Add(ttl)}
}

// evictLocked frees one slot, preferring expired entries. Falls back to an
// arbitrary entry so the map stays bounded.
func (s *MemoryStore) evictLocked() {
	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
			return
		}
	}
	for k := range s.entries {
		delete(s.entries, k)
		return
	}
}

// Len reports the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
