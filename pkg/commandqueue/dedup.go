package commandqueue

import (
	"context"
	"sync"
	"time"
)

// DefaultDedupTTL is used when NewDedupCache gets a non-positive ttl
const DefaultDedupTTL = 5 * time.Minute

// DedupCache remembers recently seen keys so redelivered work runs once.
// Telegram update IDs are the usual key.
type DedupCache[K comparable] struct {
	mu      sync.Mutex
	seenAt  map[K]time.Time
	ttl     time.Duration
	now     func() time.Time
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewDedupCache creates a cache whose keys expire after ttl. Expired keys
// are swept until ctx is done or Stop is called.
func NewDedupCache[K comparable](ctx context.Context, ttl time.Duration) *DedupCache[K] {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}

	ctx, stop := context.WithCancel(ctx)
	c := &DedupCache[K]{
		seenAt:  make(map[K]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stop:    stop,
		stopped: make(chan struct{}),
	}
	go c.sweepLoop(ctx, min(ttl, time.Minute))

	return c
}

// Seen records key and reports whether it was already recorded within the ttl
func (c *DedupCache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seenAt[key]; ok && now.Sub(at) <= c.ttl {
		return true
	}
	c.seenAt[key] = now
	return false
}

// Sweep drops expired keys and returns how many were removed
func (c *DedupCache[K]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for key, at := range c.seenAt {
		if at.Before(cutoff) {
			delete(c.seenAt, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered keys
func (c *DedupCache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seenAt)
}

// Stop ends the sweeper and waits for it to exit
func (c *DedupCache[K]) Stop() {
	c.stop()
	<-c.stopped
}

func (c *DedupCache[K]) sweepLoop(ctx context.Context, every time.Duration) {
	defer close(c.stopped)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
