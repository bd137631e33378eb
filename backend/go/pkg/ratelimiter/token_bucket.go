package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens        float64   // The current number of tokens in the bucket.
	lastTokenTime time.Time // The last time tokens were added.
}

// TokenBucket implements the RateLimiter interface using the token bucket algorithm.
// It allows for bursts of requests up to the bucket's capacity, per key.
type TokenBucket struct {
	rate     float64 // The rate at which tokens are generated (tokens per second).
	capacity float64 // The maximum number of tokens in the bucket.
	buckets  map[string]*bucket
	now      func() time.Time
	mutex    sync.Mutex
}

// NewTokenBucket creates a new TokenBucket.
// rate: the number of tokens to generate per second.
// capacity: the maximum number of tokens (burst size).
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow refills the key's bucket based on the elapsed time and consumes one
// token if available. Unknown keys start with a full bucket.
func (tb *TokenBucket) Allow(_ context.Context, key string) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		if len(tb.buckets) >= maxIdleKeys {
			tb.prune(now)
		}
		b = &bucket{tokens: tb.capacity, lastTokenTime: now}
		tb.buckets[key] = b
	}
	tb.refill(b, now)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastTokenTime)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * tb.rate
	if b.tokens > tb.capacity {
		b.tokens = tb.capacity
	}
	b.lastTokenTime = now
}

// prune drops buckets that have refilled completely; they are
// indistinguishable from a fresh bucket.
func (tb *TokenBucket) prune(now time.Time) {
	for key, b := range tb.buckets {
		tb.refill(b, now)
		if b.tokens >= tb.capacity {
			delete(tb.buckets, key)
		}
	}
}
