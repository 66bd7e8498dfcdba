// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAirQualityIndex(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1}, {1, 1}, {3, 3}, {6, 6}, {7, 1}, {-2, 1},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("index %d", tc.in), func(t *testing.T) {
			if got := AirQualityIndex(tc.in); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("fetch failed: %w", context.DeadlineExceeded)) {
		t.Error("expected wrapped deadline to be a timeout")
	}
	if !IsTimeout(fmt.Errorf("dial: %w", timeoutErr{})) {
		t.Error("expected net style timeout to be a timeout")
	}
	if IsTimeout(errors.New("connection refused")) {
		t.Error("expected plain error not to be a timeout")
	}
}

func TestResolveError(t *testing.T) {
	t.Run("message ends in request timeout on deadline", func(t *testing.T) {
		err := &ResolveError{Failures: []*ProviderError{
			{Provider: "weatherapi", Err: ErrPrimaryUnavailable},
			{Provider: "open-meteo", Err: fmt.Errorf("request failed: %w", context.DeadlineExceeded)},
		}}
		if !strings.HasSuffix(err.Error(), "request timeout") {
			t.Errorf("expected message to end in request timeout, got %q", err.Error())
		}
		if !strings.Contains(err.Error(), "weatherapi, open-meteo") {
			t.Errorf("expected message to name both providers, got %q", err.Error())
		}
	})
	t.Run("message names the last error otherwise", func(t *testing.T) {
		err := &ResolveError{Failures: []*ProviderError{
			{Provider: "open-meteo", Err: ErrMalformedPayload},
		}}
		if !strings.HasSuffix(err.Error(), ErrMalformedPayload.Error()) {
			t.Errorf("expected message to end in the last error, got %q", err.Error())
		}
	})
	t.Run("matches sentinels", func(t *testing.T) {
		var err error = &ResolveError{Failures: []*ProviderError{
			{Provider: "weatherapi", Err: ErrPrimaryUnavailable},
			{Provider: "open-meteo", Err: ErrMalformedPayload},
		}}
		if !errors.Is(err, ErrBothProvidersFailed) {
			t.Error("expected ErrBothProvidersFailed")
		}
		if !errors.Is(err, ErrPrimaryUnavailable) || !errors.Is(err, ErrMalformedPayload) {
			t.Error("expected provider failures to be matchable")
		}
	})
	t.Run("empty failure list", func(t *testing.T) {
		err := &ResolveError{}
		if err.Error() != ErrBothProvidersFailed.Error() {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})
}

func TestNewDayHour(t *testing.T) {
	want := time.Date(2025, 1, 1, 1, 2, 3, 0, time.UTC)
	dayhour := NewDayHour(want)
	if !dayhour.Time().Equal(want.Truncate(time.Hour)) {
		t.Errorf("expected time to be %s, got %s", want, dayhour.Time())
	}
}
