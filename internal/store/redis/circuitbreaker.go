package redis

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // requests pass through
	StateOpen     State = 1 // requests rejected until the reset timeout
	StateHalfOpen State = 2 // one probe allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards the cache connection. After maxFailures
// consecutive failures it opens and rejects calls for resetTimeout, then
// lets a single probe through. A successful probe closes it.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	probing      bool
	now          func() time.Time

	// OnStateChange is called on transitions while the lock is held; it
	// must not call back into the breaker.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	cb.now = now
	cb.mu.Unlock()
	return cb
}

// Execute runs fn through the breaker. It returns ErrCircuitOpen without
// calling fn while the breaker is open or a probe is already in flight.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the current state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
