package ratelimiter

import (
	"sync"
	"time"
)

// Keyed keeps one limiter per key, built on first use. Limiters idle for
// longer than idleTTL are dropped on the next sweep.
type Keyed struct {
	factory Factory
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[string]*keyedEntry
	lastSweep time.Time
}

type keyedEntry struct {
	limiter  RateLimiter
	lastSeen time.Time
}

var _ KeyedRateLimiter = (*Keyed)(nil)

// NewKeyed creates a per-key limiter.
func NewKeyed(factory Factory, idleTTL time.Duration) *Keyed {
	return &Keyed{
		factory:   factory,
		idleTTL:   idleTTL,
		now:       time.Now,
		limiters:  make(map[string]*keyedEntry),
		lastSweep: time.Now(),
	}
}

func (k *Keyed) AllowKey(key string) bool {
	k.mu.Lock()
	now := k.now()
	if k.idleTTL > 0 && now.Sub(k.lastSweep) > k.idleTTL {
		for name, e := range k.limiters {
			if now.Sub(e.lastSeen) > k.idleTTL {
				delete(k.limiters, name)
			}
		}
		k.lastSweep = now
	}
	e, ok := k.limiters[key]
	if !ok {
		e = &keyedEntry{limiter: k.factory(k.now)}
		k.limiters[key] = e
	}
	e.lastSeen = now
	k.mu.Unlock()

	return e.limiter.Allow()
}
