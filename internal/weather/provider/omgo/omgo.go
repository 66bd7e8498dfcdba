// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package omgo is an Open-Meteo provider backed by the hectormalot/omgo client. The current
// conditions of that client lack humidity, UV and rain probability, so these are read from
// the hourly series at the current hour.
package omgo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hectormalot/omgo"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	name         = "omgo"
	FetchTimeout = time.Second * 10
)

var hourlyMetrics = []string{
	"temperature_2m", "relative_humidity_2m", "uv_index", "precipitation_probability", "weather_code",
}

type forecaster interface {
	Forecast(ctx context.Context, loc omgo.Location, opts *omgo.Options) (*omgo.Forecast, error)
}

type OMGO struct {
	client forecaster
	log    *logger.Logger
}

func New(log *logger.Logger) (*OMGO, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Open-Meteo client: %w", err)
	}
	return &OMGO{client: &client, log: log}, nil
}

func (o *OMGO) Name() string {
	return name
}

func (o *OMGO) Fetch(ctx context.Context, coords geolocation.Coordinate) (weather.Record, error) {
	ctxFetch, cancelFetch := context.WithTimeout(ctx, FetchTimeout)
	defer cancelFetch()

	location, err := omgo.NewLocation(coords.Lat, coords.Lon)
	if err != nil {
		return weather.Record{}, fmt.Errorf("failed create Open-Meteo location from coordinates: %w", err)
	}
	opts := &omgo.Options{
		Timezone:          "auto",
		TemperatureUnit:   "celsius",
		PrecipitationUnit: "mm",
		WindspeedUnit:     "kmh",
		HourlyMetrics:     hourlyMetrics,
	}

	forecast, err := o.client.Forecast(ctxFetch, location, opts)
	if err != nil {
		return weather.Record{}, fmt.Errorf("failed to get forecast data: %w", err)
	}
	return record(forecast)
}

func record(forecast *omgo.Forecast) (weather.Record, error) {
	if forecast == nil {
		return weather.Record{}, fmt.Errorf("%w: empty forecast", weather.ErrMalformedPayload)
	}
	now := forecast.CurrentWeather.Time.Time
	if now.IsZero() {
		return weather.Record{}, fmt.Errorf("%w: missing current weather", weather.ErrMalformedPayload)
	}

	hour := now.Truncate(time.Hour)
	idx := -1
	minTemp, maxTemp := math.Inf(1), math.Inf(-1)
	temps := forecast.HourlyMetrics["temperature_2m"]
	for i, t := range forecast.HourlyTimes {
		if t.Equal(hour) {
			idx = i
		}
		if !sameDay(t, now) || i >= len(temps) {
			continue
		}
		minTemp = math.Min(minTemp, temps[i])
		maxTemp = math.Max(maxTemp, temps[i])
	}
	if idx == -1 || math.IsInf(minTemp, 0) {
		return weather.Record{}, fmt.Errorf("%w: hourly series does not cover %s", weather.ErrMalformedPayload,
			hour.Format(time.DateTime))
	}

	values := make(map[string]float64, len(hourlyMetrics))
	for _, metric := range hourlyMetrics[1:4] {
		series := forecast.HourlyMetrics[metric]
		if idx >= len(series) {
			return weather.Record{}, fmt.Errorf("%w: missing hourly %s", weather.ErrMalformedPayload, metric)
		}
		values[metric] = series[idx]
	}

	return weather.Record{
		Temperature:     forecast.CurrentWeather.Temperature,
		MinTemperature:  minTemp,
		MaxTemperature:  maxTemp,
		Humidity:        values["relative_humidity_2m"],
		UVIndex:         values["uv_index"],
		RainProbability: values["precipitation_probability"],
		WeatherCode:     int(forecast.CurrentWeather.WeatherCode),
		AirQuality:      weather.DefaultAirQuality,
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
