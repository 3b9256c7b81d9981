// Package retry provides a generic bounded-retry executor with
// exponential backoff. It wraps probe invocations, database writes, and
// recommendation calls identically; retry behavior is always explicit at
// the call site, never hidden behind a decorator.
package retry

import (
	"context"
	"time"
)

// Policy is the value object describing retry behavior. The zero value is
// not usable; construct with DefaultPolicy or explicit fields.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first,
	// so an operation runs at most MaxRetries+1 times.
	MaxRetries int

	// BaseDelay is the delay before the first retry. The delay before
	// retry i is BaseDelay * Multiplier^(i-1), capped at MaxDelay.
	BaseDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// MaxDelay bounds the backoff so long orchestrations never wait
	// unboundedly between attempts.
	MaxDelay time.Duration
}

// DefaultPolicy mirrors the orchestration defaults: two retries with a
// two second base delay, doubling, capped at thirty seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		Multiplier: 2.0,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns the backoff delay preceding the given retry attempt
// (1-based). Attempt values below 1 return the base delay.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Executor runs operations under a Policy. Sleep is injectable so tests
// can observe the backoff schedule without waiting on wall-clock time.
type Executor struct {
	Policy Policy

	// Sleep waits for d or until the context is cancelled. When nil, a
	// context-aware timer sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor returns an Executor with the default timer-based sleep.
func NewExecutor(policy Policy) *Executor {
	return &Executor{Policy: policy}
}

// Do runs op up to MaxRetries+1 times, sleeping with exponential backoff
// between attempts. The backoff suspends only the calling goroutine.
// On exhaustion the last error is returned; context cancellation during
// a backoff aborts immediately with the context error.
func (e *Executor) Do(ctx context.Context, op func() error) error {
	sleep := e.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 0; attempt <= e.Policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, e.Policy.Delay(attempt)); err != nil {
				return err
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

// Do is a convenience wrapper running op under the given policy with the
// default sleep.
func Do(ctx context.Context, policy Policy, op func() error) error {
	return NewExecutor(policy).Do(ctx, op)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
