// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weatherapi

import (
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"testing"
	"testing/synctest"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/testhelper"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	madridFile    = "../../../../testdata/weatherapi_madrid.json"
	berlinFile    = "../../../../testdata/weatherapi_berlin.json"
	malformedFile = "../../../../testdata/weatherapi_malformed.json"
)

var madrid = geolocation.Coordinate{Lat: 40.4168, Lon: -3.7038}

func testProvider(t *testing.T, fn func(*stdhttp.Request) (*stdhttp.Response, error)) *WeatherAPI {
	t.Helper()
	client := http.New(logger.New(slog.LevelInfo))
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	provider, err := New(client, logger.New(slog.LevelInfo), "test-key")
	if err != nil {
		t.Fatalf("failed to create WeatherAPI provider: %s", err)
	}
	return provider
}

func TestNew(t *testing.T) {
	client := http.New(logger.New(slog.LevelInfo))
	log := logger.New(slog.LevelInfo)
	t.Run("new provider succeeds", func(t *testing.T) {
		provider, err := New(client, log, "test-key")
		if err != nil {
			t.Fatalf("failed to create WeatherAPI provider: %s", err)
		}
		if provider.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, provider.Name())
		}
	})
	t.Run("new provider without API key fails", func(t *testing.T) {
		if _, err := New(client, log, ""); err == nil {
			t.Error("expected New to fail without API key")
		}
	})
	t.Run("new provider without http client fails", func(t *testing.T) {
		if _, err := New(nil, log, "test-key"); err == nil {
			t.Error("expected New to fail without http client")
		}
	})
	t.Run("new provider without logger fails", func(t *testing.T) {
		if _, err := New(client, nil, "test-key"); err == nil {
			t.Error("expected New to fail without logger")
		}
	})
}

func TestWeatherAPI_Fetch(t *testing.T) {
	t.Run("Madrid scenario", func(t *testing.T) {
		provider := testProvider(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			query := req.URL.Query()
			if query.Get("key") != "test-key" {
				t.Error("expected API key to be sent")
			}
			if query.Get("q") != "40.416800,-3.703800" {
				t.Errorf("unexpected location query: %s", query.Get("q"))
			}
			if query.Get("days") != "1" || query.Get("aqi") != "yes" {
				t.Errorf("unexpected query: %s", req.URL.RawQuery)
			}
			return testhelper.FileResponse(t, madridFile), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		want := weather.Record{
			Temperature: 15, MinTemperature: 10, MaxTemperature: 18, Humidity: 60,
			UVIndex: 3, WeatherCode: 1, RainProbability: 20, AirQuality: 1,
		}
		if record != want {
			t.Errorf("expected %+v, got %+v", want, record)
		}
	})
	t.Run("condition code and air quality are mapped", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.FileResponse(t, berlinFile), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if record.WeatherCode != 61 {
			t.Errorf("expected WMO code 61 for light rain, got %d", record.WeatherCode)
		}
		if record.AirQuality != 2 {
			t.Errorf("expected air quality 2, got %d", record.AirQuality)
		}
		if record.RainProbability != 89 {
			t.Errorf("expected rain probability 89, got %f", record.RainProbability)
		}
	})
	t.Run("mapping the same payload twice is identical", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.FileResponse(t, berlinFile), nil
		})
		first, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		second, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if first != second {
			t.Errorf("expected identical records, got %+v and %+v", first, second)
		}
	})
	t.Run("out of range air quality defaults to 1", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(200, `{"current":{"temp_c":1,"humidity":2,"uv":3,
				"condition":{"code":1000},"air_quality":{"us-epa-index":9}},
				"forecast":{"forecastday":[{"day":{"mintemp_c":0,"maxtemp_c":4,"daily_chance_of_rain":0}}]}}`), nil
		})
		record, err := provider.Fetch(t.Context(), madrid)
		if err != nil {
			t.Fatalf("failed to fetch weather: %s", err)
		}
		if record.AirQuality != 1 {
			t.Errorf("expected air quality 1, got %d", record.AirQuality)
		}
		if record.WeatherCode != 0 {
			t.Errorf("expected WMO code 0 for sunny, got %d", record.WeatherCode)
		}
	})
	t.Run("missing field is a malformed payload", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.FileResponse(t, malformedFile), nil
		})
		_, err := provider.Fetch(t.Context(), madrid)
		if !errors.Is(err, weather.ErrMalformedPayload) {
			t.Errorf("expected ErrMalformedPayload, got %v", err)
		}
		if !errors.Is(err, weather.ErrPrimaryUnavailable) {
			t.Errorf("expected ErrPrimaryUnavailable, got %v", err)
		}
	})
	t.Run("missing forecast is a malformed payload", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(200, `{"current":{"temp_c":1}}`), nil
		})
		if _, err := provider.Fetch(t.Context(), madrid); !errors.Is(err, weather.ErrMalformedPayload) {
			t.Errorf("expected ErrMalformedPayload, got %v", err)
		}
	})
	t.Run("non-2xx status fails", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(403, `{"error":{"code":2008,"message":"API key has been disabled."}}`), nil
		})
		_, err := provider.Fetch(t.Context(), madrid)
		if !errors.Is(err, http.ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
	})
	t.Run("broken JSON fails", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(200, "NOT_JSON"), nil
		})
		if _, err := provider.Fetch(t.Context(), madrid); err == nil {
			t.Error("expected Fetch to fail on broken JSON")
		}
	})
	t.Run("request times out after ten seconds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			provider := testProvider(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
				<-req.Context().Done()
				return nil, req.Context().Err()
			})
			start := time.Now()
			_, err := provider.Fetch(t.Context(), madrid)
			if !weather.IsTimeout(err) {
				t.Errorf("expected a timeout, got %v", err)
			}
			if elapsed := time.Since(start); elapsed != apiTimeout {
				t.Errorf("expected timeout after %s, got %s", apiTimeout, elapsed)
			}
		})
	})
}

func TestWeatherAPI_breaker(t *testing.T) {
	calls := 0
	provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
		calls++
		return testhelper.JSONResponse(503, `{}`), nil
	})
	for range breakerFailures {
		if _, err := provider.Fetch(t.Context(), madrid); !errors.Is(err, http.ErrHTTPStatus) {
			t.Fatalf("expected ErrHTTPStatus, got %v", err)
		}
	}
	_, err := provider.Fetch(t.Context(), madrid)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
	if !errors.Is(err, weather.ErrPrimaryUnavailable) {
		t.Errorf("expected ErrPrimaryUnavailable, got %v", err)
	}
	if calls != breakerFailures {
		t.Errorf("expected %d requests, got %d", breakerFailures, calls)
	}
}

func TestWMOCode(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{1000, 0}, {1003, 2}, {1135, 45}, {1183, 61}, {1225, 75}, {1276, 95}, {1, 1}, {4242, 4242},
	}
	for _, tc := range tests {
		if got := WMOCode(tc.code); got != tc.want {
			t.Errorf("WMOCode(%d): expected %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestWeatherAPI_Fetch_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	apikey := os.Getenv("WEATHERAPI_KEY")
	if apikey == "" {
		t.Skip("WEATHERAPI_KEY not set")
	}
	provider, err := New(http.New(logger.New(slog.LevelInfo)), logger.New(slog.LevelInfo), apikey)
	if err != nil {
		t.Fatalf("failed to create WeatherAPI provider: %s", err)
	}
	record, err := provider.Fetch(t.Context(), madrid)
	if err != nil {
		t.Fatalf("failed to fetch weather: %s", err)
	}
	if record.AirQuality < 1 || record.AirQuality > 6 {
		t.Errorf("expected air quality within 1..6, got %d", record.AirQuality)
	}
}
