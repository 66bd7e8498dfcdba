// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package retry runs an operation under a bounded attempt policy. Every attempt gets its own
// timeout, a failed attempt is followed by a backoff pause, and the attempts never overlap.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is matched by every ExhaustedError.
var ErrExhausted = errors.New("all attempts failed")

// Policy describes how often and how long an operation is attempted.
type Policy struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     func(attempt int) time.Duration
}

// ExhaustedError is returned once all attempts of a policy have failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %s", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error right away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// LinearBackoff returns a backoff that waits attempt × step after the given attempt.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Do runs op until it succeeds, returns a permanent error, the policy is exhausted or ctx
// is done.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, policy.Timeout, op)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		// The parent context ended, the attempt timing out on its own is not the same thing.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if policy.Backoff != nil {
			if !sleepOrDone(ctx, policy.Backoff(attempt)) {
				return zero, ctx.Err()
			}
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	ctxAttempt, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(ctxAttempt)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
