// Package circuitbreaker short-circuits calls to a failing backing store so it
// is not hit on every published event.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
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

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open request budget is spent.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Settings configures a breaker.
type Settings struct {
	Name string

	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// CoolDown is the time spent open before trial calls are let through.
	CoolDown time.Duration
	// MaxHalfOpenRequests bounds concurrent calls while half-open.
	MaxHalfOpenRequests int

	// OnStateChange is invoked with the lock held; it must not call back
	// into the breaker.
	OnStateChange func(name string, from, to State)
	// IsFailure classifies errors. Nil counts every non-nil error.
	IsFailure func(error) bool

	now func() time.Time
}

// Option mutates Settings.
type Option func(*Settings)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(s *Settings) {
		if n > 0 {
			s.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many half-open successes close the circuit.
func WithSuccessThreshold(n int) Option {
	return func(s *Settings) {
		if n > 0 {
			s.SuccessThreshold = n
		}
	}
}

// WithCoolDown sets the open-state duration.
func WithCoolDown(d time.Duration) Option {
	return func(s *Settings) {
		if d > 0 {
			s.CoolDown = d
		}
	}
}

// WithMaxHalfOpenRequests sets the half-open request budget.
func WithMaxHalfOpenRequests(n int) Option {
	return func(s *Settings) {
		if n > 0 {
			s.MaxHalfOpenRequests = n
		}
	}
}

// WithOnStateChange registers a state transition callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *Settings) { s.OnStateChange = fn }
}

// WithIsFailure overrides error classification.
func WithIsFailure(fn func(error) bool) Option {
	return func(s *Settings) { s.IsFailure = fn }
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Settings) {
		if now != nil {
			s.now = now
		}
	}
}

// Counts are cumulative call statistics.
type Counts struct {
	Requests             int
	Rejected             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	openedAt   time.Time
	inFlight   int
}

// New creates a closed breaker.
func New(name string, opts ...Option) *CircuitBreaker {
	s := Settings{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		CoolDown:            30 * time.Second,
		MaxHalfOpenRequests: 1,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &CircuitBreaker{settings: s}
}

// Execute runs fn if the breaker admits the call and records its outcome.
// A cancelled call is returned as-is and counts as neither success nor failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	generation, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.record(generation, err)
	return err
}

// ExecuteWithFallback calls fallback when the breaker rejects the call.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn func(context.Context) error, fallback func(error) error) error {
	err := cb.Execute(ctx, fn)
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return fallback(err)
	}
	return err
}

// admit returns the state generation the call was admitted in. A call admitted
// while half-open holds a slot until record releases it.
func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return cb.generation, nil
	case StateOpen:
		if cb.settings.now().Sub(cb.openedAt) < cb.settings.CoolDown {
			cb.counts.Rejected++
			return 0, ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.inFlight = 1
		return cb.generation, nil
	case StateHalfOpen:
		if cb.inFlight < cb.settings.MaxHalfOpenRequests {
			cb.inFlight++
			return cb.generation, nil
		}
		cb.counts.Rejected++
		return 0, ErrTooManyRequests
	}
	return 0, ErrCircuitOpen
}

func (cb *CircuitBreaker) record(generation uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Outcomes from an earlier state do not count against the current one.
	if generation != cb.generation {
		return
	}
	if cb.state == StateHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}

	cb.counts.Requests++
	if errors.Is(err, context.Canceled) {
		return
	}
	if cb.isFailure(err) {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0
		switch cb.state {
		case StateClosed:
			if cb.counts.ConsecutiveFailures >= cb.settings.FailureThreshold {
				cb.trip()
			}
		case StateHalfOpen:
			cb.trip()
		}
		return
	}

	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0
	if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.settings.SuccessThreshold {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if cb.settings.IsFailure != nil {
		return cb.settings.IsFailure(err)
	}
	return true
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.settings.now()
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.generation++
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.inFlight = 0

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns a copy of the call statistics.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the breaker and clears statistics.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.generation++
	cb.counts = Counts{}
	cb.inFlight = 0
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.settings.Name
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// ConsentStoreBreaker guards the Postgres consent table. Consent checks sit on
// the publish path, so the circuit opens quickly and retries often. opts are
// applied after the preset.
func ConsentStoreBreaker(onStateChange func(name string, from, to State), opts ...Option) *CircuitBreaker {
	preset := []Option{
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCoolDown(10 * time.Second),
		WithMaxHalfOpenRequests(1),
		WithOnStateChange(onStateChange),
	}
	return New("consent-store", append(preset, opts...)...)
}
