// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
)

const (
	apiEndpoint = "https://api.beacondb.net/v1/geolocate"
	name        = "ichnaea"
	nomapSuffix = "_nomap"
)

// wlan is the part of the mdlayher/wifi client we need.
type wlan interface {
	Interfaces() ([]*wifi.Interface, error)
	AccessPoints(ifi *wifi.Interface) ([]*wifi.BSS, error)
	Close() error
}

// GeolocationICHNAEAProvider scans the nearby WiFi access points and asks a Mozilla Location
// Service compatible API (BeaconDB) where they are.
type GeolocationICHNAEAProvider struct {
	name     string
	http     *http.Client
	openWLAN func() (wlan, error)
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

type request struct {
	ConsiderIP   bool              `json:"considerIp"`
	Accesspoints []WirelessNetwork `json:"wifiAccessPoints"`
}

func NewGeolocationICHNAEAProvider(http *http.Client) (*GeolocationICHNAEAProvider, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	return &GeolocationICHNAEAProvider{
		name: name,
		http: http,
		openWLAN: func() (wlan, error) {
			return wifi.New()
		},
	}, nil
}

func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

// Locate scans for access points and resolves them. Without a WiFi station interface, or
// without any mappable access point in range, the provider is unavailable.
func (p *GeolocationICHNAEAProvider) Locate(ctx context.Context) (geolocation.Coordinate, error) {
	networks, err := p.wifiAccessPoints()
	if err != nil {
		return geolocation.Coordinate{}, err
	}
	if len(networks) == 0 {
		return geolocation.Coordinate{}, fmt.Errorf("%w: no WiFi access points in range", geolocation.ErrUnavailable)
	}

	body := bytes.NewBuffer(nil)
	if err = json.NewEncoder(body).Encode(request{Accesspoints: networks}); err != nil {
		return geolocation.Coordinate{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	result := new(APIResult)
	if _, err = p.http.Post(ctx, apiEndpoint, result, body,
		map[string]string{"Content-Type": "application/json"}); err != nil {
		return geolocation.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geolocation.Coordinate{
		Lat: result.Location.Latitude,
		Lon: result.Location.Longitude,
		Acc: result.Accuracy,
	}.Truncated(), nil
}

func (p *GeolocationICHNAEAProvider) wifiAccessPoints() ([]WirelessNetwork, error) {
	client, err := p.openWLAN()
	if err != nil {
		return nil, fmt.Errorf("%w: no WiFi support: %s", geolocation.ErrUnavailable, err)
	}
	defer func() {
		_ = client.Close()
	}()

	ifaces, err := client.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list WiFi interfaces: %s", geolocation.ErrUnavailable, err)
	}

	var list []WirelessNetwork
	stations := 0
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		stations++
		aps, err := client.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, nomapSuffix) {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}
	if stations == 0 {
		return nil, fmt.Errorf("%w: no WiFi station interface", geolocation.ErrUnavailable)
	}

	return list, nil
}
