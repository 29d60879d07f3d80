// internal/retry/retry.go
package retry

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryEvent describes a wait before the next attempt.
type RetryEvent struct {
	Operation         string
	Attempt           int // attempt that just failed, 1-based
	AttemptsRemaining int
	Delay             time.Duration
	Hinted            bool
	Err               error
}

type options struct {
	name    string
	sleep   Sleeper
	onRetry []func(RetryEvent)
}

// Option configures Do.
type Option func(*options)

// WithName labels the operation in retry events.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSleeper replaces the real timer, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

// WithOnRetry registers fn to be called before every backoff wait. Hooks
// accumulate and run in registration order.
func WithOnRetry(fn func(RetryEvent)) Option {
	return func(o *options) { o.onRetry = append(o.onRetry, fn) }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do invokes op until it succeeds, fails with a non-throttling error, or
// policy.MaxAttempts invocations have been made. Fatal errors and the final
// throttling error are returned untouched. Only the calling goroutine waits.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	delay := policy.BaseDelay
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		remaining := policy.MaxAttempts - attempt
		if remaining <= 0 || !IsThrottling(err) {
			return result, err
		}

		hint, hinted := ParseRetryHint(err.Error())
		delay = NextDelay(delay, hint, hinted, policy.HintBuffer)
		ev := RetryEvent{
			Operation:         o.name,
			Attempt:           attempt,
			AttemptsRemaining: remaining,
			Delay:             delay,
			Hinted:            hinted,
			Err:               err,
		}
		for _, fn := range o.onRetry {
			fn(ev)
		}
		if serr := o.sleep(ctx, delay); serr != nil {
			var zero T
			return zero, serr
		}
	}
}
