// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/text/language"

	"github.com/wneessen/clockdash/internal/geocode"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
)

const (
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	name        = "opencage"
)

type OpenCage struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

type Result struct {
	Components Components `json:"components"`
	Formatted  string     `json:"formatted"`
}

type Components struct {
	NormalizedCity string `json:"_normalized_city"`
	City           string `json:"city"`
	CityDistrict   string `json:"city_district"`
	Country        string `json:"country"`
	CountryCode    string `json:"country_code"`
	HouseNumber    string `json:"house_number"`
	Neighbourhood  string `json:"neighbourhood"`
	Postcode       string `json:"postcode"`
	Road           string `json:"road"`
	State          string `json:"state"`
	Suburb         string `json:"suburb"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

func New(client *http.Client, lang language.Tag, apikey string) *OpenCage {
	return &OpenCage{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Reverse(ctx context.Context, coords geolocation.Coordinate) (geocode.Address, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("limit", "1")
	query.Set("language", o.lang.String())

	if _, err := o.http.Get(ctx, APIEndpoint, &response, query, nil); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if len(response.Results) == 0 {
		return geocode.Address{Latitude: coords.Lat, Longitude: coords.Lon}, nil
	}

	result := response.Results[0].Components
	address := geocode.Address{
		Found:       true,
		Latitude:    coords.Lat,
		Longitude:   coords.Lon,
		Street:      result.Road,
		HouseNumber: result.HouseNumber,
		Locality:    result.Suburb,
		City:        result.NormalizedCity,
		Region:      result.State,
		Postcode:    result.Postcode,
		Country:     result.Country,
		CountryCode: result.CountryCode,
	}
	if address.Locality == "" {
		address.Locality = result.Neighbourhood
	}
	switch {
	case result.City != "":
		address.City = result.City
	case result.Town != "":
		address.City = result.Town
	case result.Village != "":
		address.City = result.Village
	}

	return address, nil
}
