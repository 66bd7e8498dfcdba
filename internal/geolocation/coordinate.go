// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation

import (
	"errors"
	"fmt"
	"math"
)

const (
	EarthRadius       = 6371000.0 // meters
	DistanceThreshold = 2500.0    // 2.5km
	TruncPrecision    = 4

	AccuracyCountry = 300000
	AccuracyRegion  = 100000
	AccuracyCity    = 15000
	AccuracyZip     = 3000
	AccuracyUnknown = 1000000
)

// ErrInvalidCoordinate is returned for non-finite or out-of-range coordinates.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate represents a geographic coordinate. Acc is the estimated accuracy in meters,
// zero if the source did not report one.
type Coordinate struct {
	Lat float64
	Lon float64
	Acc float64
}

// Validate rejects non-finite latitudes and longitudes and values outside the WGS84 range.
func (c Coordinate) Validate() error {
	switch {
	case math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0):
		return fmt.Errorf("%w: latitude %v is not finite", ErrInvalidCoordinate, c.Lat)
	case math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0):
		return fmt.Errorf("%w: longitude %v is not finite", ErrInvalidCoordinate, c.Lon)
	case c.Lat < -90 || c.Lat > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, c.Lat)
	case c.Lon < -180 || c.Lon > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Distance returns the great-circle distance to other in meters (Haversine formula).
func (c Coordinate) Distance(other Coordinate) float64 {
	dLat := (c.Lat - other.Lat) * math.Pi / 180
	dLon := (c.Lon - other.Lon) * math.Pi / 180
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// PosHasSignificantChange reports whether other is further away than DistanceThreshold.
func (c Coordinate) PosHasSignificantChange(other Coordinate) bool {
	return c.Distance(other) > DistanceThreshold
}

// Truncated returns the coordinate with latitude and longitude cut to TruncPrecision digits.
func (c Coordinate) Truncated() Coordinate {
	return Coordinate{
		Lat: Truncate(c.Lat, TruncPrecision),
		Lon: Truncate(c.Lon, TruncPrecision),
		Acc: c.Acc,
	}
}

func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
