// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpspoll

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"testing"
	"time"
)

const (
	tvpFull = `{"class":"TPV","device":"/dev/ttyACM0","mode":3,"time":"2025-11-24T10:44:41.000Z","leapseconds":18,"ept":0.005,"lat":51.000000000,"lon":7.000000000,"altHAE":120.0000,"altMSL":75.0000,"alt":75.0000,"epx":8.100,"epy":11.400,"epv":27.600,"track":332.6961,"magtrack":334.8207,"magvar":2.1,"speed":0.229,"climb":-0.217,"eps":1.02,"epc":55.20,"ecefx":3980000.00,"ecefy":500000.00,"ecefz":4930000.00,"ecefvx":-0.28,"ecefvy":-0.14,"ecefvz":-0.04,"ecefpAcc":15.28,"ecefvAcc":1.02,"velN":0.204,"velE":-0.105,"velD":0.217,"geoidSep":46.037,"eph":17.670,"sep":28.880}`
)

func TestNewClient(t *testing.T) {
	client := New("localhost", "2497")
	if client == nil {
		t.Fatal("expected client to be non-nil")
	}
	if client.Addr != "localhost:2497" {
		t.Errorf("expected client address to be localhost:2497, got %s", client.Addr)
	}
}

func TestClient_Poll(t *testing.T) {
	t.Run("poll succeeds with different TPV results", func(t *testing.T) {
		tests := []struct {
			name string
			tpv  string
			lat  float64
			lon  float64
			acc  float64
			mode int
		}{
			{
				"full response",
				tvpFull,
				51, 7, 17.67, 3,
			},
			{
				"no Eph use Epx/Epy",
				`{"class":"TPV","device":"/dev/ttyACM0","mode":3,"time":"2025-11-24T10:44:41.000Z","lat":51.0,"lon":7.0,"alt":75.0000,"epx":8.100,"epy":11.400}`,
				51, 7, math.Hypot(8.100, 11.400), 3,
			},
			{
				"no Eph, Epx and Epy - fallback to 3d fix accuracy",
				`{"class":"TPV","device":"/dev/ttyACM0","mode":3,"time":"2025-11-24T10:44:41.000Z","lat":51.0,"lon":7.0,"alt":75.0000}`,
				51, 7, accuracy3DFix, 3,
			},
			{
				"no Eph, Epx and Epy - fallback to 2d fix accuracy",
				`{"class":"TPV","device":"/dev/ttyACM0","mode":2,"time":"2025-11-24T10:44:41.000Z","lat":51.0,"lon":7.0,"alt":75.0000}`,
				51, 7, accuracy2DFix, 2,
			},
			{
				"no accuracy information at all",
				`{"class":"TPV","device":"/dev/ttyACM0","mode":1,"time":"2025-11-24T10:44:41.000Z","lat":51.0,"lon":7.0,"alt":75.0000}`,
				51, 7, accuracyNoFix, 1,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				addr := startMockGPSD(t.Context(), t, tc.tpv)
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					t.Fatalf("failed to parse mock gpsd address: %v", err)
				}
				client := New(host, port)
				fix, err := client.Poll(t.Context())
				if err != nil {
					t.Fatalf("failed to poll for fix: %v", err)
				}
				if fix.Lat != tc.lat {
					t.Errorf("expected latitude to be %f, got %f", tc.lat, fix.Lat)
				}
				if fix.Lon != tc.lon {
					t.Errorf("expected longitude to be %f, got %f", tc.lon, fix.Lon)
				}
				if fix.Acc != tc.acc {
					t.Errorf("expected accuracy to be %f, got %f", tc.acc, fix.Acc)
				}
				if fix.Mode != tc.mode {
					t.Errorf("expected mode to be %d, got %d", tc.mode, fix.Mode)
				}
			})
		}
	})
	t.Run("poll with a canceled context", func(t *testing.T) {
		addr := startMockGPSD(t.Context(), t, tvpFull)

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			t.Fatalf("failed to parse mock gpsd address: %v", err)
		}

		ctxPoll, ctxCancel := context.WithCancel(t.Context())
		client := New(host, port)
		ctxCancel()
		_, err = client.Poll(ctxPoll)
		if err == nil {
			t.Fatal("expected Poll() to fail with context canceled")
		}
	})
	t.Run("poll with broken JSON returned", func(t *testing.T) {
		addr := startMockGPSD(t.Context(), t, "invalid")

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			t.Fatalf("failed to parse mock gpsd address: %v", err)
		}

		client := New(host, port)
		_, err = client.Poll(t.Context())
		if err == nil {
			t.Fatal("expected Poll() to fail on broken JSON")
		}
	})
}

func TestClient_Locate(t *testing.T) {
	t.Run("locate with a 2D fix succeeds", func(t *testing.T) {
		addr := startMockGPSD(t.Context(), t, `{"class":"TPV","mode":2,"lat":40.4168,"lon":-3.7038}`)
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			t.Fatalf("failed to parse mock gpsd address: %v", err)
		}
		fix, err := New(host, port).Locate(t.Context())
		if err != nil {
			t.Fatalf("failed to locate: %v", err)
		}
		if fix.Lat != 40.4168 || fix.Lon != -3.7038 {
			t.Errorf("unexpected fix: %+v", fix)
		}
	})
	t.Run("locate without a fix fails", func(t *testing.T) {
		addr := startMockGPSD(t.Context(), t, `{"class":"TPV","mode":1,"lat":0,"lon":0}`)
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			t.Fatalf("failed to parse mock gpsd address: %v", err)
		}
		_, err = New(host, port).Locate(t.Context())
		if !errors.Is(err, ErrNoFix) {
			t.Errorf("expected ErrNoFix, got %v", err)
		}
	})
	t.Run("locate with gpsd not running fails", func(t *testing.T) {
		ln, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()
		host, port, _ := net.SplitHostPort(addr)
		if _, err = New(host, port).Locate(t.Context()); err == nil {
			t.Error("expected Locate() to fail without gpsd")
		}
	})
}

func TestFix_Has2DFix(t *testing.T) {
	fix := Fix{Mode: 1}
	if fix.Has2DFix() {
		t.Error("expected Has2DFix() to return false for mode 1")
	}
	fix = Fix{Mode: 2}
	if !fix.Has2DFix() {
		t.Error("expected Has2DFix() to return true for mode 2")
	}
	fix = Fix{Mode: 3}
	if !fix.Has2DFix() {
		t.Error("expected Has2DFix() to return true for mode 3")
	}
}

// startMockGPSD serves a single client: it waits for the WATCH command, sends the usual
// gpsd preamble followed by tpv and keeps the connection open until the test ends.
func startMockGPSD(ctx context.Context, t *testing.T, tpv string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen for mock gpsd: %v", err)
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() {
			_ = conn.Close()
		}()
		serveMockGPSD(conn, tpv)
		<-ctx.Done()
	})
	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
	})

	return ln.Addr().String()
}

func serveMockGPSD(conn net.Conn, tpv string) {
	_ = conn.SetReadDeadline(time.Now().Add(time.Millisecond * 200))
	_, _ = bufio.NewReader(conn).ReadString('\n')
	_ = conn.SetReadDeadline(time.Time{})

	for _, line := range []string{
		`{"class":"VERSION","release":"gpsd 3.26","proto_major":3,"proto_minor":14}`,
		`{"class":"DEVICES","devices":[{"class":"DEVICE","path":"/dev/ttyACM0","driver":"MockGPS","native":0}]}`,
		tpv,
	} {
		if _, err := fmt.Fprintln(conn, line); err != nil {
			return
		}
	}
}
