package circuitbreaker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
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

var ErrOpen = errors.New("circuit breaker is open")

// Option configures a Breaker.
type Option func(*options)

type options struct {
	now      func() time.Time
	onChange func(from, to State)
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStateChange registers a callback run after every transition.
func WithStateChange(fn func(from, to State)) Option {
	return func(o *options) { o.onChange = fn }
}

// Breaker is a generic, thread-safe circuit breaker.
type Breaker[T any] struct {
	maxFailures      int64
	resetTimeout     time.Duration
	halfOpenRequests int64
	now              func() time.Time
	onChange         func(from, to State)

	state           atomic.Int32
	failures        atomic.Int64
	lastFailureTime atomic.Int64 // Unix nano
	successCount    atomic.Int64
	probing         atomic.Bool
}

// New creates a breaker that opens after maxFailures consecutive failures and
// admits a probe once resetTimeout has passed.
func New[T any](maxFailures int, resetTimeout time.Duration, opts ...Option) *Breaker[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cb := &Breaker[T]{
		maxFailures:      int64(maxFailures),
		resetTimeout:     resetTimeout,
		halfOpenRequests: 1,
		now:              o.now,
		onChange:         o.onChange,
	}
	cb.state.Store(int32(StateClosed))
	return cb
}

// Execute wraps a function call with the circuit breaker logic. While half-open
// only one call at a time is let through as a probe.
func (cb *Breaker[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	ok, probe := cb.admit()
	if !ok {
		var zero T
		return zero, ErrOpen
	}
	if probe {
		defer cb.probing.Store(false)
	}

	result, err := fn(ctx)
	cb.recordResult(err)

	return result, err
}

// State returns the current state without side effects.
func (cb *Breaker[T]) State() State {
	return State(cb.state.Load())
}

func (cb *Breaker[T]) admit() (ok, probe bool) {
	switch State(cb.state.Load()) {
	case StateClosed:
		return true, false
	case StateOpen:
		if cb.now().UnixNano() <= cb.lastFailureTime.Load()+cb.resetTimeout.Nanoseconds() {
			return false, false
		}
		if cb.transition(StateOpen, StateHalfOpen) {
			cb.successCount.Store(0)
		}
		return cb.claimProbe()
	case StateHalfOpen:
		return cb.claimProbe()
	default:
		return false, false
	}
}

func (cb *Breaker[T]) claimProbe() (ok, probe bool) {
	if State(cb.state.Load()) != StateHalfOpen {
		return false, false
	}
	if !cb.probing.CompareAndSwap(false, true) {
		return false, false
	}
	return true, true
}

func (cb *Breaker[T]) recordResult(err error) {
	if err != nil {
		newFailures := cb.failures.Add(1)
		cb.lastFailureTime.Store(cb.now().UnixNano())

		current := State(cb.state.Load())
		if current == StateHalfOpen || (current == StateClosed && newFailures >= cb.maxFailures) {
			cb.transition(current, StateOpen)
		}
		return
	}

	if State(cb.state.Load()) == StateHalfOpen {
		if cb.successCount.Add(1) >= cb.halfOpenRequests && cb.transition(StateHalfOpen, StateClosed) {
			cb.failures.Store(0)
		}
		return
	}
	cb.failures.Store(0)
}

func (cb *Breaker[T]) transition(from, to State) bool {
	if !cb.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if cb.onChange != nil {
		cb.onChange(from, to)
	}
	return true
}
