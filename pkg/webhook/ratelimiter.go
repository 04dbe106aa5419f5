package webhook

import (
	"sync"
	"time"
)

// rateWindow is the sliding window every limit is counted over
const rateWindow = time.Minute

// RateLimiter allows up to a fixed number of requests per key within a
// sliding one-minute window
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	hits   map[string][]time.Time
	now    func() time.Time
	done   chan struct{}
	closed sync.Once
}

// NewRateLimiter creates a limiter. A non-positive limit disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	rl := &RateLimiter{
		limit: limit,
		hits:  make(map[string][]time.Time),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	if limit > 0 {
		go rl.evictLoop(5 * time.Minute)
	}
	return rl
}

// Allow records a request for key. When the key is over its limit the
// request is not recorded and retryAfter says when the oldest hit leaves
// the window.
func (rl *RateLimiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := inWindow(rl.hits[key], now)
	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return false, recent[0].Add(rateWindow).Sub(now)
	}
	rl.hits[key] = append(recent, now)
	return true, 0
}

// Stop ends background eviction. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.closed.Do(func() { close(rl.done) })
}

// evict forgets keys with no hits inside the window
func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, hits := range rl.hits {
		if recent := inWindow(hits, now); len(recent) == 0 {
			delete(rl.hits, key)
		} else {
			rl.hits[key] = recent
		}
	}
}

func (rl *RateLimiter) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-rl.done:
			return
		}
	}
}

// inWindow drops hits older than the window. hits is sorted oldest first.
func inWindow(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
