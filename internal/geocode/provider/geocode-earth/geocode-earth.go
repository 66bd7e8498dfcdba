// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/text/language"

	"github.com/wneessen/clockdash/internal/geocode"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
)

const (
	APIEndpoint = "https://api.geocode.earth/v1/reverse"
	name        = "geocode-earth"
)

type GeocodeEarth struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Features []Feature `json:"features"`
	Type     string    `json:"type"`
}

type Feature struct {
	Properties Properties `json:"properties"`
	Type       string     `json:"type"`
}

type Properties struct {
	Label         string `json:"label"`
	Locality      string `json:"locality"`
	Neighbourhood string `json:"neighbourhood"`
	Borough       string `json:"borough"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
	HouseNumber   string `json:"housenumber"`
	Postcode      string `json:"postalcode"`
	Street        string `json:"street"`
	Region        string `json:"region"`
}

func New(client *http.Client, lang language.Tag, apikey string) *GeocodeEarth {
	return &GeocodeEarth{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (g *GeocodeEarth) Name() string {
	return name
}

func (g *GeocodeEarth) Reverse(ctx context.Context, coords geolocation.Coordinate) (geocode.Address, error) {
	var response Response

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("point.lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("point.lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	query.Set("size", "1")
	query.Set("lang", g.lang.String())

	if _, err := g.http.Get(ctx, APIEndpoint, &response, query, nil); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from geocode.earth API: %w", err)
	}
	if len(response.Features) < 1 {
		return geocode.Address{Latitude: coords.Lat, Longitude: coords.Lon}, nil
	}

	result := response.Features[0].Properties
	address := geocode.Address{
		Found:       true,
		Latitude:    coords.Lat,
		Longitude:   coords.Lon,
		Street:      result.Street,
		HouseNumber: result.HouseNumber,
		Locality:    result.Neighbourhood,
		City:        result.Locality,
		Region:      result.Region,
		Postcode:    result.Postcode,
		Country:     result.Country,
		CountryCode: result.CountryCode,
	}
	if address.Locality == "" {
		address.Locality = result.Borough
	}

	return address, nil
}
