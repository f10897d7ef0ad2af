package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects calls until the cool-down elapses.
	Open
	// HalfOpen lets trial calls through to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned without invoking the call while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a remote dependency.
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open.
	Execute(fn func() error) error
	// State returns the current state, applying any pending Open -> HalfOpen transition.
	State() State
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	failureThreshold uint32
	successThreshold uint32
	cooldown         time.Duration
	now              func() time.Time

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

var _ CircuitBreaker = (*Breaker)(nil)

// New creates a Breaker that opens after failureThreshold consecutive failures,
// stays open for cooldown, and closes again after successThreshold consecutive
// half-open successes.
func New(failureThreshold, successThreshold uint32, cooldown time.Duration, opts ...Option) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	b.advance()
	if b.state == Open {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// advance moves Open to HalfOpen once the cool-down has elapsed. Caller holds mu.
func (b *Breaker) advance() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = HalfOpen
		b.successes = 0
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		b.failures = 0
	}
}

func (b *Breaker) onFailure() {
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
}
