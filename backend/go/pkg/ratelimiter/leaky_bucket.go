package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket drains at a constant rate; a request is admitted while the
// level is below capacity.
type LeakyBucket struct {
	rate     float64
	capacity float64
	now      func() time.Time

	mu       sync.Mutex
	level    float64
	lastLeak time.Time
}

var _ RateLimiter = (*LeakyBucket)(nil)

// NewLeakyBucket creates an empty LeakyBucket draining rate requests per second.
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	return newLeakyBucket(rate, capacity, time.Now)
}

func newLeakyBucket(rate float64, capacity int, now func() time.Time) *LeakyBucket {
	return &LeakyBucket{rate: rate, capacity: float64(capacity), now: now, lastLeak: now()}
}

func (lb *LeakyBucket) Allow() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.now()
	if elapsed := now.Sub(lb.lastLeak); elapsed > 0 {
		lb.level -= elapsed.Seconds() * lb.rate
		if lb.level < 0 {
			lb.level = 0
		}
		lb.lastLeak = now
	}

	if lb.level+1 <= lb.capacity {
		lb.level++
		return true
	}
	return false
}
