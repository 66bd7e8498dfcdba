// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package retry

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"
)

var errTest = errors.New("intentionally failing")

func TestDo(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Timeout: time.Second * 8, Backoff: LinearBackoff(time.Second)}

	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		got, err := Do(t.Context(), policy, func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %s", err)
		}
		if got != "ok" {
			t.Errorf("expected result %q, got %q", "ok", got)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
	t.Run("third attempt succeeds after linear backoff", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			calls := 0
			start := time.Now()
			got, err := Do(t.Context(), policy, func(context.Context) (int, error) {
				calls++
				if calls < 3 {
					return 0, errTest
				}
				return 42, nil
			})
			if err != nil {
				t.Fatalf("expected no error, got %s", err)
			}
			if got != 42 {
				t.Errorf("expected result 42, got %d", got)
			}
			// 1s after the first and 2s after the second attempt
			if elapsed := time.Since(start); elapsed != time.Second*3 {
				t.Errorf("expected 3s of backoff, got %s", elapsed)
			}
		})
	})
	t.Run("exhausting all attempts returns an ExhaustedError", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			calls := 0
			_, err := Do(t.Context(), policy, func(context.Context) (int, error) {
				calls++
				return 0, errTest
			})
			if calls != 3 {
				t.Errorf("expected 3 calls, got %d", calls)
			}
			if !errors.Is(err, ErrExhausted) {
				t.Errorf("expected error to match ErrExhausted, got %s", err)
			}
			if !errors.Is(err, errTest) {
				t.Errorf("expected error to wrap the last error, got %s", err)
			}
			var exhausted *ExhaustedError
			if !errors.As(err, &exhausted) {
				t.Fatalf("expected ExhaustedError, got %T", err)
			}
			if exhausted.Attempts != 3 {
				t.Errorf("expected 3 attempts, got %d", exhausted.Attempts)
			}
		})
	})
	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := Do(t.Context(), policy, func(context.Context) (int, error) {
			calls++
			return 0, Permanent(errTest)
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		if !errors.Is(err, errTest) {
			t.Errorf("expected the unwrapped permanent error, got %s", err)
		}
		if errors.Is(err, ErrExhausted) {
			t.Error("did not expect a permanent error to count as exhausted")
		}
	})
	t.Run("each attempt is bound by the timeout", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			short := Policy{MaxAttempts: 2, Timeout: time.Second * 5, Backoff: LinearBackoff(time.Second)}
			calls := 0
			_, err := Do(t.Context(), short, func(ctx context.Context) (int, error) {
				calls++
				<-ctx.Done()
				return 0, ctx.Err()
			})
			if calls != 2 {
				t.Errorf("expected 2 calls, got %d", calls)
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected the attempt deadline to be reported, got %s", err)
			}
		})
	})
	t.Run("cancelling the parent context stops retrying", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			calls := 0
			_, err := Do(ctx, policy, func(context.Context) (int, error) {
				calls++
				cancel()
				return 0, errTest
			})
			if calls != 1 {
				t.Errorf("expected 1 call, got %d", calls)
			}
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %s", err)
			}
		})
	})
	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		_, _ = Do(t.Context(), Policy{}, func(context.Context) (int, error) {
			calls++
			return 0, errTest
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestLinearBackoff(t *testing.T) {
	backoff := LinearBackoff(time.Second)
	for attempt, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 3 * time.Second} {
		if got := backoff(attempt); got != want {
			t.Errorf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}
