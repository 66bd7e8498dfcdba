// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geolocation defines the coordinate type and the two kinds of coordinate sources:
// precise locators that ask the device (a file, gpsd or nearby WiFi networks) and IP locators
// that ask a web service about the public IP address.
package geolocation

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by a locator that is not usable on this device.
	ErrUnavailable = errors.New("geolocation source unavailable")
	// ErrPermission is returned by a locator that is not allowed to read its source.
	ErrPermission = errors.New("geolocation source permission denied")
	// ErrIncompleteResponse is returned when a lookup answered without a coordinate.
	ErrIncompleteResponse = errors.New("geolocation response has no coordinate")
)

// PreciseLocator returns the device coordinate from a local source.
type PreciseLocator interface {
	Name() string
	Locate(ctx context.Context) (Coordinate, error)
}

// IPLocation is the result of an IP based lookup.
type IPLocation struct {
	Coordinate
	City    string
	Region  string
	Country string
}

// IPLocator returns the approximate location of the public IP address.
type IPLocator interface {
	Name() string
	LookupIP(ctx context.Context) (IPLocation, error)
}
