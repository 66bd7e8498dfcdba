// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/gpspoll"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "2947"
	name        = "gpsd"
)

type poller interface {
	Locate(ctx context.Context) (gpspoll.Fix, error)
}

// GeolocationGPSDProvider asks a local gpsd for the current fix.
type GeolocationGPSDProvider struct {
	name   string
	client poller
}

func NewGeolocationGPSDProvider(host, port string) *GeolocationGPSDProvider {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	return &GeolocationGPSDProvider{
		name:   name,
		client: gpspoll.New(host, port),
	}
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// Locate returns the current 2D or 3D fix. A refused connection means there is no gpsd
// running on this device.
func (p *GeolocationGPSDProvider) Locate(ctx context.Context) (geolocation.Coordinate, error) {
	fix, err := p.client.Locate(ctx)
	if errors.Is(err, syscall.ECONNREFUSED) {
		return geolocation.Coordinate{}, fmt.Errorf("%w: gpsd is not running: %s", geolocation.ErrUnavailable, err)
	}
	if err != nil {
		return geolocation.Coordinate{}, fmt.Errorf("failed to get fix from gpsd: %w", err)
	}
	return geolocation.Coordinate{Lat: fix.Lat, Lon: fix.Lon, Acc: fix.Acc}.Truncated(), nil
}
