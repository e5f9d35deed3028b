// Package retry runs an operation a bounded number of times with
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 5 * time.Second}
}

// ExhaustedError is returned once every attempt has failed. Err is the last failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, the context is
// done, or the attempts run out. notify, if non-nil, sees every failure that
// is followed by another attempt.
func Do[T any](ctx context.Context, p Policy, op func(attempt int) (T, error), notify func(attempt int, err error, wait time.Duration)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	attempt := 0
	var lastErr error
	res, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(attempt)
		if err != nil {
			lastErr = err
		}
		return v, err
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var perm *backoff.PermanentError
	if errors.As(lastErr, &perm) {
		return res, perm.Err
	}
	return res, &ExhaustedError{Attempts: attempt, Err: err}
}

// Until calls produce and accepts the result only when valid returns nil.
// An invalid result counts as a failed attempt and is retried with the same inputs.
func Until[T any](ctx context.Context, p Policy, produce func(ctx context.Context) (T, error), valid func(T) error, notify func(attempt int, err error, wait time.Duration)) (T, error) {
	return Do(ctx, p, func(int) (T, error) {
		var zero T
		v, err := produce(ctx)
		if err != nil {
			return zero, err
		}
		if err := valid(v); err != nil {
			return zero, err
		}
		return v, nil
	}, notify)
}
