// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/wneessen/clockdash/internal/geolocation"
)

const name = "geolocation_file"

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider reads the device position from a user maintained file. The first
// line in "lat,lon" form wins, lines starting with # are comments.
type GeolocationFileProvider struct {
	name string
	path string
}

func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	return &GeolocationFileProvider{name: name, path: path}
}

func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// Locate reads the file. A missing file makes the provider unavailable, a file we may not
// read is a permission problem.
func (p *GeolocationFileProvider) Locate(ctx context.Context) (geolocation.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geolocation.Coordinate{}, err
	}
	lat, lon, err := p.readFile()
	if err != nil {
		return geolocation.Coordinate{}, err
	}
	return geolocation.Coordinate{Lat: lat, Lon: lon, Acc: geolocation.AccuracyZip}, nil
}

func (p *GeolocationFileProvider) readFile() (lat, lon float64, err error) {
	data, err := os.ReadFile(p.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 0, 0, fmt.Errorf("%w: geolocation file %q does not exist", geolocation.ErrUnavailable, p.path)
	case errors.Is(err, fs.ErrPermission):
		return 0, 0, fmt.Errorf("%w: geolocation file %q is not readable", geolocation.ErrPermission, p.path)
	case err != nil:
		return 0, 0, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		latStr, lonStr, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			continue
		}
		lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			continue
		}
		return lat, lon, nil
	}
	return 0, 0, ErrNoCoordinates
}
