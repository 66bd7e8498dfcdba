// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geocode turns coordinates into human-readable place names.
package geocode

import (
	"context"
	"strings"

	"github.com/wneessen/clockdash/internal/geolocation"
)

// UnknownLocation is displayed when no place name fragment could be resolved.
const UnknownLocation = "unknown location"

const fragmentSeparator = ", "

// Address is a reverse geocoding result. Found is false if the provider answered but knows
// no address at the coordinate (e.g. in the middle of the ocean).
type Address struct {
	Found       bool
	CacheHit    bool
	Latitude    float64
	Longitude   float64
	Street      string
	HouseNumber string
	Locality    string
	City        string
	Region      string
	Postcode    string
	Country     string
	CountryCode string
}

type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geolocation.Coordinate) (Address, error)
}

// Fragments returns street, locality, city, region and country in that order with empty and
// repeated values removed. The first occurrence of a value wins.
func (a Address) Fragments() []string {
	return Fragments(a.Street, a.Locality, a.City, a.Region, a.Country)
}

// DisplayName joins the fragments, or returns UnknownLocation if there are none.
func (a Address) DisplayName() string {
	return DisplayName(a.Street, a.Locality, a.City, a.Region, a.Country)
}

// Fragments drops empty and duplicate values from parts while keeping their order.
func Fragments(parts ...string) []string {
	fragments := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		fragments = append(fragments, part)
	}
	return fragments
}

// DisplayName joins the deduplicated parts with a comma.
func DisplayName(parts ...string) string {
	fragments := Fragments(parts...)
	if len(fragments) == 0 {
		return UnknownLocation
	}
	return strings.Join(fragments, fragmentSeparator)
}
