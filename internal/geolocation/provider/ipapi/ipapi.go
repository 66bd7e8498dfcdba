// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ipapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/vartype"
)

const (
	apiEndpoint = "https://ipapi.co/json/"
	name        = "ipapi"
)

var ErrAPIError = errors.New("ipapi returned an error")

// GeolocationIPAPIProvider looks up the public IP address via ipapi.co.
type GeolocationIPAPIProvider struct {
	name     string
	http     *http.Client
	endpoint string
}

type APIResult struct {
	IP        string             `json:"ip"`
	City      string             `json:"city"`
	Region    string             `json:"region"`
	Country   string             `json:"country_name"`
	Postal    string             `json:"postal"`
	Latitude  vartype.VarFloat64 `json:"latitude"`
	Longitude vartype.VarFloat64 `json:"longitude"`

	// ipapi.co answers rate limited or reserved addresses with 200 and these fields
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func NewGeolocationIPAPIProvider(http *http.Client) (*GeolocationIPAPIProvider, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	return &GeolocationIPAPIProvider{name: name, http: http, endpoint: apiEndpoint}, nil
}

func (p *GeolocationIPAPIProvider) Name() string {
	return p.name
}

func (p *GeolocationIPAPIProvider) LookupIP(ctx context.Context) (geolocation.IPLocation, error) {
	result := new(APIResult)
	if _, err := p.http.Get(ctx, p.endpoint, result, nil, nil); err != nil {
		return geolocation.IPLocation{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if result.Error {
		return geolocation.IPLocation{}, fmt.Errorf("%w: %s", ErrAPIError, result.Reason)
	}
	if !result.Latitude.IsSet() || !result.Longitude.IsSet() {
		return geolocation.IPLocation{}, geolocation.ErrIncompleteResponse
	}

	acc := float64(geolocation.AccuracyCountry)
	switch {
	case result.Postal != "":
		acc = geolocation.AccuracyZip
	case result.City != "":
		acc = geolocation.AccuracyCity
	case result.Region != "":
		acc = geolocation.AccuracyRegion
	}

	return geolocation.IPLocation{
		Coordinate: geolocation.Coordinate{Lat: result.Latitude.Value(), Lon: result.Longitude.Value(), Acc: acc}.Truncated(),
		City:       result.City,
		Region:     result.Region,
		Country:    result.Country,
	}, nil
}
