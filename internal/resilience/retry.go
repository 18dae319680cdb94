package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	Attempts       int           // total attempts, 1 = no retry
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // upper bound for a single delay (0 = 10x initial)
}

// Retry calls fn until it succeeds, returns an error for which retryable
// reports false, the attempts are exhausted or ctx is done. The last error is
// returned unchanged so callers can still match it with errors.Is.
func Retry[T any](ctx context.Context, p RetryPolicy, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	if p.Attempts <= 1 {
		return fn(ctx)
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		eb.InitialInterval = p.InitialBackoff
	}
	eb.MaxInterval = p.MaxBackoff
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = 10 * eb.InitialInterval
	}

	op := func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(p.Attempts)),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return v, perm.Unwrap()
	}
	return v, err
}
