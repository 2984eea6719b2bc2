// Package ratelimit throttles scan admissions per client.
package ratelimit

import (
	"sync"
	"time"
)

// staleAfter is how long an idle client's bucket survives before the next
// Allow call sweeps it.
const staleAfter = 10 * time.Minute

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// Limiter is a keyed token bucket. Scan starts consume one token per
// request; tokens refill continuously up to the capacity.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	now     func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*tokenBucket), now: time.Now}
}

// Allow consumes one token for key, refilling at refillPerSec up to
// capacity. Returns false when the bucket is empty.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.sweep(now)
		b = &tokenBucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens += elapsed * refillPerSec
		if b.tokens > capacity {
			b.tokens = capacity
		}
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets that have been idle long enough to be full again.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > staleAfter {
			delete(l.buckets, key)
		}
	}
}
