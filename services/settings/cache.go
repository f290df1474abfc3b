package settings

import (
	"sync"
	"time"

	"github.com/upb/publish-guard/models"
)

// SnapshotCache keeps the last policy snapshot for a fixed TTL.
// A zero TTL disables caching. Safe for concurrent use.
//
// Every Invalidate bumps the generation. A snapshot loaded before a write
// carries the old generation and is refused by Set.
type SnapshotCache struct {
	mu         sync.RWMutex
	snapshot   *models.PolicyConfig
	generation uint64
	insertedAt time.Time
	ttl        time.Duration
	now        func() time.Time
	hits       uint64
	misses     uint64
}

// NewSnapshotCache creates a cache with the given TTL
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot when present and not expired
func (c *SnapshotCache) Get() (models.PolicyConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil || c.ttl <= 0 || c.now().Sub(c.insertedAt) > c.ttl {
		c.misses++
		c.snapshot = nil
		return models.PolicyConfig{}, false
	}
	c.hits++
	return *c.snapshot, true
}

// Generation returns the current generation. Capture it before loading a
// snapshot and hand it to Set.
func (c *SnapshotCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Set stores a snapshot loaded at generation gen. It reports false and
// keeps nothing when an Invalidate happened since.
func (c *SnapshotCache) Set(snapshot models.PolicyConfig, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.snapshot = &snapshot
	c.insertedAt = c.now()
	return true
}

// Invalidate drops the cached snapshot
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.generation++
}

// SetClock replaces the clock used for expiry
func (c *SnapshotCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// CacheStats represents cache statistics
type CacheStats struct {
	Cached  bool
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Cached: c.snapshot != nil,
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
