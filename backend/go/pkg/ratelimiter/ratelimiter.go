// Package ratelimiter provides in-process request limiters and a per-key
// wrapper used by the HTTP middleware.
package ratelimiter

import (
	"fmt"
	"time"
)

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// KeyedRateLimiter limits each key (for example a client IP) independently.
type KeyedRateLimiter interface {
	AllowKey(key string) bool
}

// Factory builds a fresh limiter reading time from now.
type Factory func(now func() time.Time) RateLimiter

// Algorithm names accepted by FactoryFor.
const (
	AlgorithmTokenBucket   = "tokenBucket"
	AlgorithmLeakyBucket   = "leakyBucket"
	AlgorithmFixedWindow   = "fixedWindow"
	AlgorithmSlidingWindow = "slidingWindow"
	AlgorithmSlidingLog    = "slidingLog"
)

// slidingWindowBuckets is the resolution of the sliding window counter.
const slidingWindowBuckets = 10

// FactoryFor returns a factory for the named algorithm. rate is the sustained
// requests per second and capacity the burst; window based algorithms allow
// capacity requests per capacity/rate seconds.
func FactoryFor(algorithm string, rate float64, capacity int) (Factory, error) {
	if rate <= 0 || capacity <= 0 {
		return nil, fmt.Errorf("rate and capacity must be positive, got %v and %d", rate, capacity)
	}
	window := time.Duration(float64(capacity) / rate * float64(time.Second))

	switch algorithm {
	case "", AlgorithmTokenBucket:
		return func(now func() time.Time) RateLimiter { return newTokenBucket(rate, capacity, now) }, nil
	case AlgorithmLeakyBucket:
		return func(now func() time.Time) RateLimiter { return newLeakyBucket(rate, capacity, now) }, nil
	case AlgorithmFixedWindow:
		return func(now func() time.Time) RateLimiter { return newFixedWindow(capacity, window, now) }, nil
	case AlgorithmSlidingWindow:
		return func(now func() time.Time) RateLimiter {
			return newSlidingWindow(capacity, window, slidingWindowBuckets, now)
		}, nil
	case AlgorithmSlidingLog:
		return func(now func() time.Time) RateLimiter { return newSlidingLog(capacity, window, now) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm %q", algorithm)
	}
}
