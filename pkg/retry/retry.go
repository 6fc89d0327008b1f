// Package retry runs an operation with capped exponential backoff and jitter.
// It is used when the consent store is first dialled.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so that the default policy retries it. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was wrapped with Retryable.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// PermanentError stops retrying regardless of policy.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that no further attempts are made. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var target *PermanentError
	return errors.As(err, &target)
}

// Policy configures a Retrier.
type Policy struct {
	// MaxAttempts includes the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the +/- fraction applied to each delay, in [0, 1].
	Jitter float64

	// RetryIf overrides classification. Nil retries only RetryableError.
	RetryIf func(error) bool
	// OnRetry runs before each sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy is three attempts starting at 100ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// Option mutates a Policy.
type Option func(*Policy)

// WithMaxAttempts caps the total number of calls.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the first backoff.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.InitialDelay = d
		}
	}
}

// WithMaxDelay caps each backoff.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.MaxDelay = d
		}
	}
}

// WithMultiplier sets the growth factor; values below 1 are ignored.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.Multiplier = m
		}
	}
}

// WithJitter sets the jitter fraction.
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j <= 1 {
			p.Jitter = j
		}
	}
}

// WithRetryIf replaces error classification.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

// WithOnRetry registers a hook run before each backoff.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy Policy
}

// New builds a Retrier from DefaultPolicy and opts.
func New(opts ...Option) *Retrier {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{policy: p}
}

// Do calls op until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. Retryable and Permanent wrappers are
// removed from the returned error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return unwrapMarker(lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) || !r.shouldRetry(err) || attempt == r.policy.MaxAttempts {
			return unwrapMarker(err)
		}

		delay := r.delay(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unwrapMarker(lastErr)
		case <-timer.C:
		}
	}

	return unwrapMarker(lastErr)
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.policy.RetryIf != nil {
		return r.policy.RetryIf(err)
	}
	return IsRetryable(err)
}

// delay is InitialDelay*Multiplier^(attempt-1), capped, then jittered.
func (r *Retrier) delay(attempt int) time.Duration {
	base := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if base > float64(r.policy.MaxDelay) {
		base = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter > 0 {
		base += base * r.policy.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(base, 0))
}

func unwrapMarker(err error) error {
	switch e := err.(type) {
	case *RetryableError:
		return e.Err
	case *PermanentError:
		return e.Err
	}
	return err
}

// Do is New(opts...).Do(ctx, op).
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
