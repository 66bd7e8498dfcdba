// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpspoll is a minimal gpsd client that watches the daemon's JSON stream until the
// first TPV report arrives and then hangs up.
package gpspoll

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

const (
	accuracy3DFix = 10
	accuracy2DFix = 25
	accuracyNoFix = 1e6

	defaultDeadline = time.Second * 2
	watchCommand    = `?WATCH={"enable":true,"json":true}` + "\n"
)

var (
	// ErrNoTPV is returned when gpsd closed the stream before sending a TPV report.
	ErrNoTPV = errors.New("gpsd sent no TPV report")
	// ErrNoFix is returned when the TPV report lacks at least a 2D fix.
	ErrNoFix = errors.New("gpsd has no 2D fix")
)

// Client polls a single gpsd instance.
type Client struct {
	Addr string
}

// Fix is a position report.
type Fix struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Acc  float64
	Mode int
}

type tpvReport struct {
	Class string  `json:"class"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Mode  int     `json:"mode"`
	Epx   float64 `json:"epx"`
	Epy   float64 `json:"epy"`
	Eph   float64 `json:"eph"`
}

func New(host, port string) *Client {
	return &Client{Addr: net.JoinHostPort(host, port)}
}

// Poll returns the first TPV report of a WATCH session. Without a deadline on ctx the
// session is cut after two seconds.
func (c *Client) Poll(ctx context.Context) (Fix, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return Fix{}, fmt.Errorf("failed to connect to gpsd at %s: %w", c.Addr, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultDeadline)
	}
	_ = conn.SetDeadline(deadline)

	if _, err = conn.Write([]byte(watchCommand)); err != nil {
		return Fix{}, fmt.Errorf("failed to send WATCH to gpsd: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err = ctx.Err(); err != nil {
			return Fix{}, err
		}
		var report tpvReport
		if json.Unmarshal(scanner.Bytes(), &report) != nil || report.Class != "TPV" {
			continue
		}
		return Fix{
			Lat:  report.Lat,
			Lon:  report.Lon,
			Alt:  report.Alt,
			Acc:  report.accuracy(),
			Mode: report.Mode,
		}, nil
	}
	if err = scanner.Err(); err != nil {
		return Fix{}, fmt.Errorf("failed to read gpsd stream: %w", err)
	}
	return Fix{}, ErrNoTPV
}

// Locate polls gpsd and fails with ErrNoFix unless the report has at least a 2D fix.
func (c *Client) Locate(ctx context.Context) (Fix, error) {
	fix, err := c.Poll(ctx)
	if err != nil {
		return fix, err
	}
	if !fix.Has2DFix() {
		return fix, ErrNoFix
	}
	return fix, nil
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= 2
}

// accuracy estimates the horizontal accuracy in meters. gpsd reports eph on newer versions,
// older ones only carry the per-axis errors.
func (r tpvReport) accuracy() float64 {
	switch {
	case r.Eph > 0:
		return r.Eph
	case r.Epx > 0 && r.Epy > 0:
		return math.Hypot(r.Epx, r.Epy)
	case r.Mode >= 3:
		return accuracy3DFix
	case r.Mode == 2:
		return accuracy2DFix
	default:
		return accuracyNoFix
	}
}
