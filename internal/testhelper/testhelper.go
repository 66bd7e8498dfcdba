// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper contains helpers shared by the package tests.
package testhelper

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"testing"
)

// TestOnlineAPIURL is a stable endpoint used by the integration tests.
const TestOnlineAPIURL = "https://httpbin.org/anything"

// MockRoundTripper is a http.RoundTripper that delegates to Fn.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// PerformIntegrationTests skips the calling test unless PERFORM_INTEGRATION_TESTS is set.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if val := os.Getenv("PERFORM_INTEGRATION_TESTS"); val == "" {
		t.Skip("skipping integration test; set PERFORM_INTEGRATION_TESTS to run it")
	}
}

// JSONResponse returns a response with the given status code and body.
func JSONResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// FileResponse returns a 200 response streaming the given fixture file.
func FileResponse(t *testing.T, path string) *http.Response {
	t.Helper()
	data, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSON response file: %s", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       data,
		Header:     make(http.Header),
	}
}
