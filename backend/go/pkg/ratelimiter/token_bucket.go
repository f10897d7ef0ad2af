package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket implements the RateLimiter interface using the token bucket algorithm.
// It allows bursts of requests up to the bucket's capacity.
type TokenBucket struct {
	rate     float64 // tokens per second
	capacity float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

var _ RateLimiter = (*TokenBucket)(nil)

// NewTokenBucket creates a full TokenBucket.
// rate: the number of tokens to generate per second.
// capacity: the maximum number of tokens (burst size).
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return newTokenBucket(rate, capacity, time.Now)
}

func newTokenBucket(rate float64, capacity int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		now:      now,
		tokens:   float64(capacity),
		last:     now(),
	}
}

// Allow refills the bucket for the elapsed time and consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// NewKeyedTokenBucket creates a per-key token bucket limiter.
func NewKeyedTokenBucket(rate float64, capacity int, idleTTL time.Duration) *Keyed {
	return NewKeyed(func(now func() time.Time) RateLimiter {
		return newTokenBucket(rate, capacity, now)
	}, idleTTL)
}
