// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

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
	APIReverseEndpoint = "https://nominatim.openstreetmap.org/reverse"
	name               = "osm-nominatim"
)

type Nominatim struct {
	http *http.Client
	lang language.Tag
}

type ReverseResult struct {
	Error       string  `json:"error"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

type Address struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	CityDistrict  string `json:"city_district"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}

func New(client *http.Client, lang language.Tag) *Nominatim {
	return &Nominatim{
		lang: lang,
		http: client,
	}
}

func (n *Nominatim) Name() string {
	return name
}

// Reverse asks Nominatim for the address at coords. Nominatim answers coordinates without an
// address (open sea) with status 200 and an error message, this is not treated as a failure.
func (n *Nominatim) Reverse(ctx context.Context, coords geolocation.Coordinate) (geocode.Address, error) {
	var result ReverseResult

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	query.Set("accept-language", n.lang.String())

	if _, err := n.http.Get(ctx, APIReverseEndpoint, &result, query, nil); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to fetch reverse address details from Nominatim API: %w", err)
	}

	address := geocode.Address{
		Found:       result.Error == "",
		Latitude:    coords.Lat,
		Longitude:   coords.Lon,
		Street:      result.Address.Road,
		HouseNumber: result.Address.HouseNumber,
		Locality:    firstOf(result.Address.Suburb, result.Address.Neighbourhood, result.Address.CityDistrict),
		City:        firstOf(result.Address.City, result.Address.Town, result.Address.Village),
		Region:      result.Address.State,
		Postcode:    result.Address.Postcode,
		Country:     result.Address.Country,
		CountryCode: result.Address.CountryCode,
	}

	return address, nil
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
