// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"errors"
	"log/slog"
	stdhttp "net/http"
	"testing"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/testhelper"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	madridFile    = "../../../../testdata/openmeteo_madrid.json"
	nullDailyFile = "../../../../testdata/openmeteo_null_daily.json"
)

var madrid = geolocation.Coordinate{Lat: 40.4168, Lon: -3.7038}

func testProvider(t *testing.T, fn func(*stdhttp.Request) (*stdhttp.Response, error)) *OpenMeteo {
	t.Helper()
	client := http.New(logger.New(slog.LevelInfo))
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	provider, err := New(client, logger.New(slog.LevelInfo))
	if err != nil {
		t.Fatalf("failed to create Open-Meteo provider: %s", err)
	}
	return provider
}

func TestNew(t *testing.T) {
	var provider weather.Provider
	provider, err := New(http.New(logger.New(slog.LevelInfo)), logger.New(slog.LevelInfo))
	if err != nil {
		t.Fatalf("failed to create client: %s", err)
	}
	if provider.Name() != name {
		t.Errorf("expected provider name to be %q, got %q", name, provider.Name())
	}
	if _, err = New(nil, logger.New(slog.LevelInfo)); err == nil {
		t.Error("expected New to fail without http client")
	}
	if _, err = New(http.New(logger.New(slog.LevelInfo)), nil); err == nil {
		t.Error("expected New to fail without logger")
	}
}

func TestOpenMeteo_Fetch(t *testing.T) {
	t.Run("fetch succeeds", func(t *testing.T) {
		provider := testProvider(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			query := req.URL.Query()
			if query.Get("latitude") != "40.416800" || query.Get("longitude") != "-3.703800" {
				t.Errorf("unexpected coordinate query: %s", req.URL.RawQuery)
			}
			if query.Get("daily") != "temperature_2m_max,temperature_2m_min" {
				t.Errorf("unexpected daily query: %s", query.Get("daily"))
			}
			return testhelper.FileResponse(t, madridFile), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		want := weather.Record{
			Temperature: 14.2, MinTemperature: 9.1, MaxTemperature: 17.8, Humidity: 58,
			UVIndex: 2.5, RainProbability: 10, WeatherCode: 2, AirQuality: 1,
		}
		if record != want {
			t.Errorf("expected %+v, got %+v", want, record)
		}
	})
	t.Run("missing precipitation probability defaults to zero", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(200, `{"current":{"temperature_2m":3,"relative_humidity_2m":80,
				"uv_index":0,"weather_code":71},"daily":{"temperature_2m_max":[4],"temperature_2m_min":[-1]}}`), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if record.RainProbability != 0 {
			t.Errorf("expected rain probability 0, got %f", record.RainProbability)
		}
		if record.WeatherCode != 71 || record.MinTemperature != -1 {
			t.Errorf("unexpected record: %+v", record)
		}
	})
	t.Run("malformed payloads fail", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"no current", `{"daily":{"temperature_2m_max":[4],"temperature_2m_min":[-1]}}`},
			{"no daily", `{"current":{"temperature_2m":3,"relative_humidity_2m":80,"uv_index":0,"weather_code":71}}`},
			{
				"empty daily arrays",
				`{"current":{"temperature_2m":3,"relative_humidity_2m":80,"uv_index":0,"weather_code":71},
				"daily":{"temperature_2m_max":[],"temperature_2m_min":[]}}`,
			},
			{
				"missing weather code",
				`{"current":{"temperature_2m":3,"relative_humidity_2m":80,"uv_index":0},
				"daily":{"temperature_2m_max":[4],"temperature_2m_min":[-1]}}`,
			},
			{
				"null minimum temperature",
				`{"current":{"temperature_2m":3,"relative_humidity_2m":80,"uv_index":0,"weather_code":1},
				"daily":{"temperature_2m_max":[4],"temperature_2m_min":[null]}}`,
			},
			{
				"null temperature",
				`{"current":{"temperature_2m":null,"relative_humidity_2m":80,"uv_index":0,"weather_code":1},
				"daily":{"temperature_2m_max":[4],"temperature_2m_min":[-1]}}`,
			},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
					return testhelper.JSONResponse(200, tc.body), nil
				})
				if _, err := provider.Fetch(t.Context(), madrid); !errors.Is(err, weather.ErrMalformedPayload) {
					t.Errorf("expected ErrMalformedPayload, got %v", err)
				}
			})
		}
	})
	t.Run("null daily temperatures fail", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.FileResponse(t, nullDailyFile), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if !errors.Is(err, weather.ErrMalformedPayload) {
			t.Errorf("expected ErrMalformedPayload, got %v", err)
		}
		if record != (weather.Record{}) {
			t.Errorf("expected no partial record, got %+v", record)
		}
	})
	t.Run("non-2xx status fails", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(400, `{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`), nil
		})
		if _, err := provider.Fetch(t.Context(), madrid); !errors.Is(err, http.ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
	})
}

func TestOpenMeteo_Fetch_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	provider, err := New(http.New(logger.New(slog.LevelInfo)), logger.New(slog.LevelDebug))
	if err != nil {
		t.Fatalf("failed to create client: %s", err)
	}
	record, err := provider.Fetch(t.Context(), madrid)
	if err != nil {
		t.Fatalf("failed to get weather: %s", err)
	}
	t.Logf("weather: %+v", record)
}
