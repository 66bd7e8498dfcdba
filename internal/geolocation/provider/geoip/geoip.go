// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/vartype"
)

const (
	apiEndpoint = "https://reallyfreegeoip.org/json/"
	name        = "geoip"
)

type GeolocationGeoIPProvider struct {
	name string
	http *http.Client
}

type APIResult struct {
	IP          string             `json:"ip"`
	CountryCode string             `json:"country_code"`
	Country     string             `json:"country_name"`
	RegionCode  string             `json:"region_code,omitempty"`
	Region      string             `json:"region_name,omitempty"`
	City        string             `json:"city,omitempty"`
	ZipCode     string             `json:"zip_code,omitempty"`
	TimeZone    string             `json:"time_zone"`
	Latitude    vartype.VarFloat64 `json:"latitude"`
	Longitude   vartype.VarFloat64 `json:"longitude"`
}

func NewGeolocationGeoIPProvider(http *http.Client) (*GeolocationGeoIPProvider, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	return &GeolocationGeoIPProvider{name: name, http: http}, nil
}

func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

func (p *GeolocationGeoIPProvider) LookupIP(ctx context.Context) (geolocation.IPLocation, error) {
	result := new(APIResult)
	if _, err := p.http.Get(ctx, apiEndpoint, result, nil, nil); err != nil {
		return geolocation.IPLocation{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if !result.Latitude.IsSet() || !result.Longitude.IsSet() {
		return geolocation.IPLocation{}, geolocation.ErrIncompleteResponse
	}

	acc := float64(geolocation.AccuracyUnknown)
	switch {
	case result.ZipCode != "":
		acc = geolocation.AccuracyZip
	case result.City != "":
		acc = geolocation.AccuracyCity
	case result.RegionCode != "":
		acc = geolocation.AccuracyRegion
	case result.CountryCode != "":
		acc = geolocation.AccuracyCountry
	}

	return geolocation.IPLocation{
		Coordinate: geolocation.Coordinate{Lat: result.Latitude.Value(), Lon: result.Longitude.Value(), Acc: acc}.Truncated(),
		City:       result.City,
		Region:     result.Region,
		Country:    result.Country,
	}, nil
}
