// Package circuit implements a consecutive-failure circuit breaker with a
// cooldown. While open, callers skip the protected dependency; after the
// cooldown the breaker lets one trial call at a time through (half-open)
// and closes again once enough of them succeed.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Transition reports a state change caused by a recorded outcome.
type Transition struct {
	Opened bool
	Closed bool
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time

	open      bool
	failures  int // consecutive failures while closed
	successes int // consecutive successes while open
	openUntil time.Time
	probing   bool // a half-open trial call is in flight
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive failures that open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive successes that close it again.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open before probes are let
// through.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a closed breaker. Defaults: 5 failures to open, 1 success to
// close, 30s cooldown.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the protected dependency's name.
func (b *Breaker) Name() string {
	return b.name
}

// State reports closed, open, or half-open once the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	switch {
	case !b.open:
		return StateClosed
	case b.now().After(b.openUntil):
		return StateHalfOpen
	default:
		return StateOpen
	}
}

// IsOpen reports whether the circuit is not closed.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Allow reports whether a call may go through: always when closed, and as
// the single trial call once the cooldown has elapsed. An admitted call must
// be settled with RecordSuccess, RecordFailure or Release.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.stateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// Release gives up an admitted call without recording an outcome, freeing
// the half-open slot.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// RecordFailure records a failed call. useFallback is true while the
// circuit is open after this call.
func (b *Breaker) RecordFailure() (useFallback bool, change Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if b.open {
		reopened := b.stateLocked() == StateHalfOpen
		b.successes = 0
		b.openUntil = b.now().Add(b.cooldown)
		return true, Transition{Opened: reopened}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.open = true
		b.successes = 0
		b.openUntil = b.now().Add(b.cooldown)
		return true, Transition{Opened: true}
	}
	return false, Transition{}
}

// RecordSuccess records a successful call. usePrimary is true while the
// circuit is closed after this call.
func (b *Breaker) RecordSuccess() (usePrimary bool, change Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if !b.open {
		b.failures = 0
		return true, Transition{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.open = false
		b.failures = 0
		b.successes = 0
		return true, Transition{Closed: true}
	}
	return false, Transition{}
}

// Reset closes the circuit and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
	b.successes = 0
	b.openUntil = time.Time{}
	b.probing = false
}
