package listener

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter keyed by client IP, protecting
// ad-hoc listeners from a misbehaving upstream flooding them with events.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens per second
	capacity int
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a limiter allowing rate events per second with the
// given burst capacity per key.
func NewRateLimiter(rate float64, capacity int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
	}
}

// Allow consumes a token for the key, reporting whether the event may pass.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	b, exists := r.buckets[key]
	if !exists {
		r.buckets[key] = &bucket{
			tokens:     float64(r.capacity) - 1,
			lastUpdate: now,
		}
		return true
	}

	b.refill(now, r.rate, r.capacity)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available for a key.
func (r *RateLimiter) Remaining(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.buckets[key]
	if !exists {
		return r.capacity
	}
	b.refill(time.Now(), r.rate, r.capacity)
	return int(b.tokens)
}

func (b *bucket) refill(now time.Time, rate float64, capacity int) {
	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * rate
	b.lastUpdate = now
	if b.tokens > float64(capacity) {
		b.tokens = float64(capacity)
	}
}

// Cleanup drops buckets idle longer than maxAge.
func (r *RateLimiter) Cleanup(maxAge time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, b := range r.buckets {
		if b.lastUpdate.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup on an interval until done is closed, so stale
// client buckets don't accumulate over a long session.
func (r *RateLimiter) StartCleanup(interval, maxAge time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.Cleanup(maxAge)
			}
		}
	}()
}
