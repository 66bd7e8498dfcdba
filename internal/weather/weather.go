// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package weather fetches current conditions and today's forecast for a coordinate from an
// ordered chain of providers.
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/clockdash/internal/geolocation"
)

const (
	// DefaultAirQuality is the US EPA index reported when a provider lacks air quality data.
	DefaultAirQuality = 1
	maxAirQuality     = 6

	timeoutMessage = "request timeout"
)

var (
	ErrMissingCoordinate   = errors.New("no coordinate to fetch weather for")
	ErrPrimaryUnavailable  = errors.New("primary weather provider unavailable")
	ErrMalformedPayload    = errors.New("malformed weather payload")
	ErrBothProvidersFailed = errors.New("unable to load weather data")
)

// Provider is implemented by each weather API backend.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coord geolocation.Coordinate) (Record, error)
}

// Record holds the weather shown on the dashboard. Temperatures are in °C.
type Record struct {
	Temperature     float64 `json:"temperature"`
	MinTemperature  float64 `json:"minTemperature"`
	MaxTemperature  float64 `json:"maxTemperature"`
	Humidity        float64 `json:"humidity"`
	UVIndex         float64 `json:"uvIndex"`
	RainProbability float64 `json:"rainProbability"`
	WeatherCode     int     `json:"weatherCode"`
	AirQuality      int     `json:"airQuality"`
}

// AirQualityIndex clamps a reported US EPA index into its 1 to 6 range. Anything outside of
// it counts as not reported.
func AirQualityIndex(index int) int {
	if index < DefaultAirQuality || index > maxAirQuality {
		return DefaultAirQuality
	}
	return index
}

// ProviderError is the failure of a single provider in the chain.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ResolveError is returned when every provider of the chain failed.
type ResolveError struct {
	Failures []*ProviderError
}

func (e *ResolveError) Error() string {
	if len(e.Failures) == 0 {
		return ErrBothProvidersFailed.Error()
	}
	names := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		names = append(names, failure.Provider)
	}
	last := e.Failures[len(e.Failures)-1]
	reason := last.Err.Error()
	if IsTimeout(last.Err) {
		reason = timeoutMessage
	}
	return fmt.Sprintf("%s from %s: %s", ErrBothProvidersFailed, strings.Join(names, ", "), reason)
}

func (e *ResolveError) Is(target error) bool {
	return target == ErrBothProvidersFailed
}

func (e *ResolveError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		errs = append(errs, failure)
	}
	return errs
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// DayHour identifies an hour of a day in an hourly forecast series.
type DayHour int64

func NewDayHour(t time.Time) DayHour {
	return DayHour(t.Truncate(time.Hour).Unix())
}

func (t DayHour) Time() time.Time {
	return time.Unix(int64(t), 0)
}
