// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package weatherapi implements the WeatherAPI.com forecast provider. Every failure, including
// a tripped circuit breaker, is reported as weather.ErrPrimaryUnavailable so that the chain
// can fall through to the next provider.
package weatherapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/vartype"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	name        = "weatherapi"
	apiEndpoint = "https://api.weatherapi.com/v1/forecast.json"
	apiTimeout  = time.Second * 10

	breakerFailures = 3
	breakerTimeout  = time.Minute * 2
)

type WeatherAPI struct {
	apikey   string
	endpoint string
	http     *http.Client
	log      *logger.Logger
	breaker  *gobreaker.CircuitBreaker
}

type response struct {
	Current *struct {
		TempC     vartype.VarFloat64 `json:"temp_c"`
		Humidity  vartype.VarFloat64 `json:"humidity"`
		UV        vartype.VarFloat64 `json:"uv"`
		Condition struct {
			Text string         `json:"text"`
			Code vartype.VarInt `json:"code"`
		} `json:"condition"`
		AirQuality *struct {
			USEPAIndex vartype.VarInt `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
	Forecast *struct {
		Forecastday []struct {
			Day *struct {
				MaxtempC          vartype.VarFloat64 `json:"maxtemp_c"`
				MintempC          vartype.VarFloat64 `json:"mintemp_c"`
				DailyChanceOfRain vartype.VarFloat64 `json:"daily_chance_of_rain"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func New(client *http.Client, log *logger.Logger, apikey string) (*WeatherAPI, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if apikey == "" {
		return nil, errors.New("API key is required")
	}

	provider := &WeatherAPI{
		apikey:   apikey,
		endpoint: apiEndpoint,
		http:     client,
		log:      log,
	}
	provider.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(breaker string, from, to gobreaker.State) {
			log.Info("weather provider circuit breaker changed state", slog.String("provider", breaker),
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})

	return provider, nil
}

func (w *WeatherAPI) Name() string {
	return name
}

func (w *WeatherAPI) Fetch(ctx context.Context, coords geolocation.Coordinate) (weather.Record, error) {
	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.fetch(ctx, coords)
	})
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: %w", weather.ErrPrimaryUnavailable, err)
	}
	record, ok := result.(weather.Record)
	if !ok {
		return weather.Record{}, fmt.Errorf("%w: unexpected result type %T", weather.ErrPrimaryUnavailable, result)
	}
	return record, nil
}

func (w *WeatherAPI) fetch(ctx context.Context, coords geolocation.Coordinate) (weather.Record, error) {
	res := new(response)

	query := url.Values{}
	query.Set("key", w.apikey)
	query.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	query.Set("days", "1")
	query.Set("aqi", "yes")
	query.Set("alerts", "no")

	if _, err := w.http.GetWithTimeout(ctx, w.endpoint, res, query, nil, apiTimeout); err != nil {
		return weather.Record{}, fmt.Errorf("failed to retrieve weather data from WeatherAPI: %w", err)
	}
	return res.record()
}

// record maps the payload into a weather.Record. Only the air quality index is optional.
func (r *response) record() (weather.Record, error) {
	if r.Current == nil {
		return weather.Record{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformedPayload)
	}
	if r.Forecast == nil || len(r.Forecast.Forecastday) == 0 || r.Forecast.Forecastday[0].Day == nil {
		return weather.Record{}, fmt.Errorf("%w: missing daily forecast", weather.ErrMalformedPayload)
	}
	current, day := r.Current, r.Forecast.Forecastday[0].Day

	required := []struct {
		field string
		isset bool
	}{
		{"temp_c", current.TempC.IsSet()},
		{"humidity", current.Humidity.IsSet()},
		{"uv", current.UV.IsSet()},
		{"condition.code", current.Condition.Code.IsSet()},
		{"mintemp_c", day.MintempC.IsSet()},
		{"maxtemp_c", day.MaxtempC.IsSet()},
		{"daily_chance_of_rain", day.DailyChanceOfRain.IsSet()},
	}
	for _, check := range required {
		if !check.isset {
			return weather.Record{}, fmt.Errorf("%w: missing field %s", weather.ErrMalformedPayload, check.field)
		}
	}

	airQuality := weather.DefaultAirQuality
	if current.AirQuality != nil {
		airQuality = weather.AirQualityIndex(current.AirQuality.USEPAIndex.ValueOr(weather.DefaultAirQuality))
	}

	return weather.Record{
		Temperature:     current.TempC.Value(),
		MinTemperature:  day.MintempC.Value(),
		MaxTemperature:  day.MaxtempC.Value(),
		Humidity:        current.Humidity.Value(),
		UVIndex:         current.UV.Value(),
		RainProbability: day.DailyChanceOfRain.Value(),
		WeatherCode:     WMOCode(current.Condition.Code.Value()),
		AirQuality:      airQuality,
	}, nil
}
