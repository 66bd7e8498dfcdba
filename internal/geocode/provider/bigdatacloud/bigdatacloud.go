// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package bigdatacloud

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/wneessen/clockdash/internal/geocode"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
)

const (
	APIEndpoint = "https://api.bigdatacloud.net/data/reverse-geocode-client"
	name        = "bigdatacloud"
)

// BigDataCloud uses the free, keyless client side reverse geocoding API of BigDataCloud.
type BigDataCloud struct {
	http *http.Client
	lang language.Tag
}

type Response struct {
	Latitude             float64      `json:"latitude"`
	Longitude            float64      `json:"longitude"`
	Locality             string       `json:"locality"`
	City                 string       `json:"city"`
	PrincipalSubdivision string       `json:"principalSubdivision"`
	Postcode             string       `json:"postcode"`
	CountryName          string       `json:"countryName"`
	CountryCode          string       `json:"countryCode"`
	LocalityInfo         LocalityInfo `json:"localityInfo"`
}

type LocalityInfo struct {
	Administrative []LocalityEntry `json:"administrative"`
	Informative    []LocalityEntry `json:"informative"`
}

type LocalityEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

func New(client *http.Client, lang language.Tag) *BigDataCloud {
	return &BigDataCloud{http: client, lang: lang}
}

func (b *BigDataCloud) Name() string {
	return name
}

func (b *BigDataCloud) Reverse(ctx context.Context, coords geolocation.Coordinate) (geocode.Address, error) {
	var response Response

	base, _ := b.lang.Base()
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	query.Set("localityLanguage", base.String())

	if _, err := b.http.Get(ctx, APIEndpoint, &response, query, nil); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from BigDataCloud API: %w", err)
	}

	address := geocode.Address{
		Latitude:    coords.Lat,
		Longitude:   coords.Lon,
		Street:      response.street(),
		Locality:    response.Locality,
		City:        response.City,
		Region:      response.PrincipalSubdivision,
		Postcode:    response.Postcode,
		Country:     response.CountryName,
		CountryCode: response.CountryCode,
	}
	address.Found = len(address.Fragments()) > 0

	return address, nil
}

// street returns the first informative entry that describes a street or a road.
func (r Response) street() string {
	for _, entry := range r.LocalityInfo.Informative {
		desc := strings.ToLower(entry.Description)
		if strings.Contains(desc, "street") || strings.Contains(desc, "road") {
			return entry.Name
		}
	}
	return ""
}
