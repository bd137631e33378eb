package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows trial requests to test whether the upstream recovered.
	HalfOpen
)

// String returns the string representation of the state.
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

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs req if the circuit is closed or half-open and records its outcome.
	Execute(req func() error) error
	// State returns the current state of the circuit breaker.
	State() State
}

// Option configures a breaker.
type Option func(*breaker)

// WithStateChange registers a hook called on every state transition.
// The hook runs outside the breaker's lock.
func WithStateChange(fn func(from, to State)) Option {
	return func(cb *breaker) {
		cb.onStateChange = fn
	}
}

type breaker struct {
	failureThreshold     uint32        // Number of failures to trip the circuit.
	successThreshold     uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout              time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	onStateChange        func(from, to State)
	now                  func() time.Time
	mutex                sync.Mutex
}

// New creates a new circuit breaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive half-open successes required to close it again.
// timeout: how long the circuit stays open before allowing trial requests.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	cb := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// State returns the current state of the circuit breaker.
func (cb *breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (cb *breaker) Execute(req func() error) error {
	cb.mutex.Lock()
	from := cb.state
	if cb.state == Open && cb.now().Sub(cb.openedAt) > cb.timeout {
		cb.setState(HalfOpen)
	}
	to := cb.state
	cb.mutex.Unlock()
	cb.notify(from, to)

	if to == Open {
		return ErrCircuitOpen
	}

	err := req()

	cb.mutex.Lock()
	from = cb.state
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	to = cb.state
	cb.mutex.Unlock()
	cb.notify(from, to)

	return err
}

// onSuccess must be called with mutex held.
func (cb *breaker) onSuccess() {
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.setState(Closed)
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
}

// onFailure must be called with mutex held.
func (cb *breaker) onFailure() {
	switch cb.state {
	case HalfOpen:
		cb.setState(Open)
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.setState(Open)
		}
	}
}

// setState resets the counters for the new state; must be called with mutex held.
func (cb *breaker) setState(s State) {
	cb.state = s
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	if s == Open {
		cb.openedAt = cb.now()
	}
}

func (cb *breaker) notify(from, to State) {
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
