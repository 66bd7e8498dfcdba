// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
)

const (
	apiEndpoint = "https://geoapi.info/api/geo"
	name        = "geoapi"
)

type GeolocationGeoAPIProvider struct {
	name string
	http *http.Client
}

type APIResult struct {
	IP       string `json:"ip"`
	Location struct {
		CountryCode string `json:"country,omitempty"`
		Country     string `json:"countryName,omitempty"`
		Region      string `json:"region,omitempty"`
		City        string `json:"city,omitempty"`
		ZipCode     string `json:"postalCode,omitempty"`
		TimeZone    string `json:"timezone"`
		Coordinates struct {
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"coordinates"`
	} `json:"location"`
}

func NewGeolocationGeoAPIProvider(http *http.Client) (*GeolocationGeoAPIProvider, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	return &GeolocationGeoAPIProvider{name: name, http: http}, nil
}

func (p *GeolocationGeoAPIProvider) Name() string {
	return p.name
}

// LookupIP queries geoapi.info. The API reports the coordinates as strings.
func (p *GeolocationGeoAPIProvider) LookupIP(ctx context.Context) (geolocation.IPLocation, error) {
	result := new(APIResult)
	if _, err := p.http.Get(ctx, apiEndpoint, result, nil, nil); err != nil {
		return geolocation.IPLocation{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	loc := result.Location
	acc := float64(geolocation.AccuracyUnknown)
	switch {
	case loc.ZipCode != "":
		acc = geolocation.AccuracyZip
	case loc.City != "":
		acc = geolocation.AccuracyCity
	case loc.Region != "":
		acc = geolocation.AccuracyRegion
	case loc.CountryCode != "":
		acc = geolocation.AccuracyCountry
	}

	lat, err := strconv.ParseFloat(loc.Coordinates.Latitude, 64)
	if err != nil {
		return geolocation.IPLocation{}, fmt.Errorf("failed to parse latitude from API response: %w", err)
	}
	lon, err := strconv.ParseFloat(loc.Coordinates.Longitude, 64)
	if err != nil {
		return geolocation.IPLocation{}, fmt.Errorf("failed to parse longitude from API response: %w", err)
	}

	return geolocation.IPLocation{
		Coordinate: geolocation.Coordinate{Lat: lat, Lon: lon, Acc: acc}.Truncated(),
		City:       loc.City,
		Region:     loc.Region,
		Country:    loc.Country,
	}, nil
}
