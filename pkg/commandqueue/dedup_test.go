package commandqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupCache_Seen(t *testing.T) {
	cache := NewDedupCache[int](context.Background(), time.Minute)
	defer cache.Stop()

	assert.False(t, cache.Seen(101))
	assert.True(t, cache.Seen(101))
	assert.False(t, cache.Seen(102))
	assert.Equal(t, 2, cache.Len())
}

func TestDedupCache_Expiry(t *testing.T) {
	cache := NewDedupCache[int](context.Background(), time.Minute)
	defer cache.Stop()

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	assert.False(t, cache.Seen(101))
	clock = clock.Add(30 * time.Second)
	assert.False(t, cache.Seen(102))

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 1, cache.Sweep(), "only 101 is older than the ttl")
	assert.Equal(t, 1, cache.Len())

	assert.False(t, cache.Seen(101), "an expired key counts as new")
	assert.True(t, cache.Seen(102))
}

func TestDedupCache_DefaultTTL(t *testing.T) {
	cache := NewDedupCache[string](context.Background(), 0)
	defer cache.Stop()

	assert.Equal(t, DefaultDedupTTL, cache.ttl)
}

func TestDedupCache_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewDedupCache[int](ctx, 50*time.Millisecond)
	cancel()

	select {
	case <-cache.stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit after the context was cancelled")
	}
	cache.Stop()
}
