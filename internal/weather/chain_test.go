// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather_test

import (
	"io"
	"log/slog"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/testhelper"
	"github.com/wneessen/clockdash/internal/weather"
	openmeteo "github.com/wneessen/clockdash/internal/weather/provider/open-meteo"
	"github.com/wneessen/clockdash/internal/weather/provider/weatherapi"
)

const openMeteoFile = "../../testdata/openmeteo_madrid.json"

func TestResolver_primaryUnreachable(t *testing.T) {
	log := logger.NewLogger(slog.LevelDebug, io.Discard)
	client := http.New(log)
	client.Transport = testhelper.MockRoundTripper{Fn: func(req *stdhttp.Request) (*stdhttp.Response, error) {
		if strings.Contains(req.URL.Host, "weatherapi") {
			return nil, io.ErrUnexpectedEOF
		}
		return testhelper.FileResponse(t, openMeteoFile), nil
	}}

	primary, err := weatherapi.New(client, log, "test-key")
	if err != nil {
		t.Fatalf("failed to create WeatherAPI provider: %s", err)
	}
	secondary, err := openmeteo.New(client, log)
	if err != nil {
		t.Fatalf("failed to create Open-Meteo provider: %s", err)
	}
	resolver, err := weather.New(weather.Config{Providers: []weather.Provider{primary, secondary}, Logger: log})
	if err != nil {
		t.Fatalf("failed to create weather resolver: %s", err)
	}

	record, err := resolver.Resolve(t.Context(), &geolocation.Coordinate{Lat: 40.4168, Lon: -3.7038})
	if err != nil {
		t.Fatalf("failed to resolve weather: %s", err)
	}
	want := weather.Record{
		Temperature: 14.2, MinTemperature: 9.1, MaxTemperature: 17.8, Humidity: 58,
		UVIndex: 2.5, RainProbability: 10, WeatherCode: 2, AirQuality: 1,
	}
	if record != want {
		t.Errorf("expected %+v, got %+v", want, record)
	}
}
