// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/clockdash/internal/config"
	"github.com/wneessen/clockdash/internal/geocode"
	"github.com/wneessen/clockdash/internal/geocode/provider/bigdatacloud"
	geocodeearth "github.com/wneessen/clockdash/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/clockdash/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/clockdash/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/geolocation/provider/geoapi"
	"github.com/wneessen/clockdash/internal/geolocation/provider/geoip"
	"github.com/wneessen/clockdash/internal/geolocation/provider/geolocation_file"
	"github.com/wneessen/clockdash/internal/geolocation/provider/gpsd"
	"github.com/wneessen/clockdash/internal/geolocation/provider/ichnaea"
	"github.com/wneessen/clockdash/internal/geolocation/provider/ipapi"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/telemetry"
	"github.com/wneessen/clockdash/internal/weather"
	omgoprovider "github.com/wneessen/clockdash/internal/weather/provider/omgo"
	openmeteo "github.com/wneessen/clockdash/internal/weather/provider/open-meteo"
	"github.com/wneessen/clockdash/internal/weather/provider/weatherapi"
)

const (
	cacheHitTTL  = time.Hour * 12
	cacheMissTTL = time.Minute * 10
)

var ErrNoLocators = errors.New("no geolocation providers enabled")

func selectLocators(conf *config.Config, client *http.Client, log *logger.Logger) ([]geolocation.PreciseLocator,
	[]geolocation.IPLocator, error,
) {
	var precise []geolocation.PreciseLocator
	var ip []geolocation.IPLocator

	if !conf.GeoLocation.DisableGeolocationFile {
		precise = append(precise, geolocation_file.NewGeolocationFileProvider(conf.GeoLocation.File))
	}

	if !conf.GeoLocation.DisableGPSD {
		precise = append(precise, gpsd.NewGeolocationGPSDProvider(conf.GeoLocation.GPSDHost,
			conf.GeoLocation.GPSDPort))
	}

	if !conf.GeoLocation.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(client)
		if err != nil {
			log.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			precise = append(precise, mls)
		}
	}

	for _, name := range conf.GeoLocation.IPProviders {
		var (
			locator geolocation.IPLocator
			err     error
		)
		switch strings.ToLower(name) {
		case "ipapi":
			locator, err = ipapi.NewGeolocationIPAPIProvider(client)
		case "geoip":
			locator, err = geoip.NewGeolocationGeoIPProvider(client)
		case "geoapi":
			locator, err = geoapi.NewGeolocationGeoAPIProvider(client)
		default:
			return nil, nil, fmt.Errorf("unsupported IP geolocation provider: %s", name)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		ip = append(ip, locator)
	}

	if len(precise) == 0 && len(ip) == 0 {
		return nil, nil, ErrNoLocators
	}
	return precise, ip, nil
}

func selectGeocodeProvider(conf *config.Config, client *http.Client, lang language.Tag) (geocode.Geocoder, error) {
	var geocoder geocode.Geocoder

	switch strings.ToLower(conf.GeoCoder.Provider) {
	case "bigdatacloud":
		geocoder = bigdatacloud.New(client, lang)
	case "nominatim":
		geocoder = nominatim.New(client, lang)
	case "opencage":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("opencage geocoder requires an API key")
		}
		geocoder = opencage.New(client, lang, conf.GeoCoder.APIKey)
	case "geocode-earth":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("geocode-earth geocoder requires an API key")
		}
		geocoder = geocodeearth.New(client, lang, conf.GeoCoder.APIKey)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.GeoCoder.Provider)
	}

	return geocode.NewCachedGeocoder(geocoder, cacheHitTTL, cacheMissTTL), nil
}

// selectWeatherProviders returns the provider chain. WeatherAPI is only part of it when an
// API key is configured.
func selectWeatherProviders(conf *config.Config, client *http.Client, log *logger.Logger) ([]weather.Provider,
	error,
) {
	providers := make([]weather.Provider, 0, 2)
	if conf.Weather.APIKey != "" {
		primary, err := weatherapi.New(client, log, conf.Weather.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create WeatherAPI provider: %w", err)
		}
		providers = append(providers, primary)
	} else {
		log.Info("no WeatherAPI key configured, using the fallback weather provider only")
	}

	switch strings.ToLower(conf.Weather.FallbackProvider) {
	case "open-meteo":
		fallback, err := openmeteo.New(client, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Open-Meteo weather provider: %w", err)
		}
		providers = append(providers, fallback)
	case "omgo":
		fallback, err := omgoprovider.New(log)
		if err != nil {
			return nil, fmt.Errorf("failed to create omgo weather provider: %w", err)
		}
		providers = append(providers, fallback)
	default:
		return nil, fmt.Errorf("unsupported weather provider: %s", conf.Weather.FallbackProvider)
	}
	return providers, nil
}

// selectSink combines the configured telemetry sinks. The returned closers need to be closed
// on shutdown.
func selectSink(conf *config.Config, log *logger.Logger) (telemetry.Sink, []func() error, error) {
	var (
		sinks   telemetry.Multi
		closers []func() error
	)
	if conf.Telemetry.Log {
		sinks = append(sinks, telemetry.NewLogSink(log))
	}
	if conf.Telemetry.MQTT.Broker != "" {
		mqttSink, err := telemetry.NewMQTTSink(telemetry.MQTTOptions{
			Broker:   conf.Telemetry.MQTT.Broker,
			ClientID: conf.Telemetry.MQTT.ClientID,
			Topic:    conf.Telemetry.MQTT.Topic,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MQTT telemetry sink: %w", err)
		}
		sinks = append(sinks, mqttSink)
		closers = append(closers, mqttSink.Close)
	}

	switch len(sinks) {
	case 0:
		return telemetry.Nop{}, closers, nil
	case 1:
		return sinks[0], closers, nil
	default:
		return sinks, closers, nil
	}
}
