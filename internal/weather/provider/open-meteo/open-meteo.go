// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/vartype"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	name        = "open-meteo"
	apiEndpoint = "https://api.open-meteo.com/v1/forecast"
	apiTimeout  = time.Second * 10
)

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "uv_index", "weather_code", "precipitation_probability",
	}
	dailyFields = []string{"temperature_2m_max", "temperature_2m_min"}
)

type OpenMeteo struct {
	endpoint string
	log      *logger.Logger
	http     *http.Client
}

type response struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   *struct {
		Temperature              vartype.VarFloat64 `json:"temperature_2m"`
		RelativeHumidity         vartype.VarFloat64 `json:"relative_humidity_2m"`
		UVIndex                  vartype.VarFloat64 `json:"uv_index"`
		WeatherCode              vartype.VarInt     `json:"weather_code"`
		PrecipitationProbability vartype.VarFloat64 `json:"precipitation_probability"`
	} `json:"current"`
	Daily *struct {
		TemperatureMax []vartype.VarFloat64 `json:"temperature_2m_max"`
		TemperatureMin []vartype.VarFloat64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func New(http *http.Client, log *logger.Logger) (*OpenMeteo, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &OpenMeteo{endpoint: apiEndpoint, http: http, log: log}, nil
}

func (o *OpenMeteo) Name() string {
	return name
}

func (o *OpenMeteo) Fetch(ctx context.Context, coords geolocation.Coordinate) (weather.Record, error) {
	res := new(response)

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%f", coords.Lat))
	query.Set("longitude", fmt.Sprintf("%f", coords.Lon))
	query.Set("current", strings.Join(currentFields, ","))
	query.Set("daily", strings.Join(dailyFields, ","))
	query.Set("forecast_days", "1")
	query.Set("timezone", "auto")

	if _, err := o.http.GetWithTimeout(ctx, o.endpoint, res, query, nil, apiTimeout); err != nil {
		return weather.Record{}, fmt.Errorf("failed to retrieve weather data from Open-Meteo API: %w", err)
	}
	return res.record()
}

// record maps the payload into a weather.Record. Open-Meteo has no air quality index in its
// forecast API, so the default is used.
func (r *response) record() (weather.Record, error) {
	if r.Current == nil {
		return weather.Record{}, fmt.Errorf("%w: missing current conditions", weather.ErrMalformedPayload)
	}
	if r.Daily == nil || len(r.Daily.TemperatureMax) == 0 || len(r.Daily.TemperatureMin) == 0 {
		return weather.Record{}, fmt.Errorf("%w: missing daily temperatures", weather.ErrMalformedPayload)
	}
	current := r.Current
	daily := r.Daily

	required := []struct {
		field string
		isset bool
	}{
		{"temperature_2m", current.Temperature.IsSet()},
		{"relative_humidity_2m", current.RelativeHumidity.IsSet()},
		{"uv_index", current.UVIndex.IsSet()},
		{"weather_code", current.WeatherCode.IsSet()},
		{"temperature_2m_min", daily.TemperatureMin[0].IsSet()},
		{"temperature_2m_max", daily.TemperatureMax[0].IsSet()},
	}
	for _, check := range required {
		if !check.isset {
			return weather.Record{}, fmt.Errorf("%w: missing field %s", weather.ErrMalformedPayload, check.field)
		}
	}

	return weather.Record{
		Temperature:     current.Temperature.Value(),
		MinTemperature:  daily.TemperatureMin[0].Value(),
		MaxTemperature:  daily.TemperatureMax[0].Value(),
		Humidity:        current.RelativeHumidity.Value(),
		UVIndex:         current.UVIndex.Value(),
		RainProbability: current.PrecipitationProbability.ValueOr(0),
		WeatherCode:     current.WeatherCode.Value(),
		AirQuality:      weather.DefaultAirQuality,
	}, nil
}
