package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/upb/publish-guard/models"
)

func TestSnapshotCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewSnapshotCache(time.Minute)
	cache.SetClock(func() time.Time { return now })

	_, ok := cache.Get()
	assert.False(t, ok)

	policy := models.PolicyConfig{EnforcedTypes: models.NewPostTypeSet("post"), MinimumSize: models.MinimumSize{Width: 1, Height: 2}}
	assert.True(t, cache.Set(policy, cache.Generation()))

	got, ok := cache.Get()
	assert.True(t, ok)
	assert.Equal(t, policy, got)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get()
	assert.False(t, ok, "expired")

	cache.Set(policy, cache.Generation())
	cache.Invalidate()
	_, ok = cache.Get()
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.InDelta(t, 0.25, stats.HitRate, 0.0001)
	assert.False(t, stats.Cached)
}

func TestSnapshotCache_ZeroTTLDisables(t *testing.T) {
	cache := NewSnapshotCache(0)
	assert.False(t, cache.Set(models.PolicyConfig{}, cache.Generation()))

	_, ok := cache.Get()
	assert.False(t, ok)
}

func TestSnapshotCache_RefusesSnapshotOlderThanInvalidate(t *testing.T) {
	cache := NewSnapshotCache(time.Minute)
	stale := models.PolicyConfig{MinimumSize: models.MinimumSize{Width: 100, Height: 100}}

	gen := cache.Generation()
	cache.Invalidate()

	assert.False(t, cache.Set(stale, gen))
	_, ok := cache.Get()
	assert.False(t, ok)

	assert.True(t, cache.Set(stale, cache.Generation()))
	_, ok = cache.Get()
	assert.True(t, ok)
}
