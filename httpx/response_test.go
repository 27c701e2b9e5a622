// File: httpx/response_test.go
// Package httpx response serialisation and CORS tests.
// License: Apache-2.0

package httpx

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

// parseWire round-trips a serialised response through the stdlib reader so
// the tests assert on wire bytes rather than struct fields.
func parseWire(t *testing.T, raw []byte) *http.Response {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		t.Fatalf("unparseable response: %v\n%s", err, raw)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestResponseBytesStatusLineAndBody(t *testing.T) {
	raw := JSON(201, map[string]string{"id": "42"}).Bytes()
	resp := parseWire(t, raw)
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"id":"42"}` {
		t.Fatalf("body = %s", body)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header.Get("Content-Length"); got != "11" {
		t.Fatalf("content length = %q", got)
	}
}

func TestResponseBytesSecurityHeaders(t *testing.T) {
	resp := parseWire(t, Text(200, "ok").Bytes())
	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"X-XSS-Protection":       "1; mode=block",
	}
	for k, v := range want {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestResponseBytesSecurityHeaderOverride(t *testing.T) {
	r := Text(200, "ok").SetHeader("X-Frame-Options", "DENY")
	resp := parseWire(t, r.Bytes())
	if got := resp.Header.Values("X-Frame-Options"); len(got) != 1 || got[0] != "DENY" {
		t.Fatalf("X-Frame-Options = %v, want single DENY", got)
	}
}

func TestResponseConnectionHeader(t *testing.T) {
	r := Text(200, "ok")
	if got := parseWire(t, r.Bytes()).Header.Get("Connection"); got != "close" {
		t.Fatalf("default Connection = %q, want close", got)
	}
	r.KeepAlive = true
	if got := parseWire(t, r.Bytes()).Header.Get("Connection"); got != "keep-alive" {
		t.Fatalf("Connection = %q, want keep-alive", got)
	}
}

func TestHandlerCannotDuplicateCanonicalHeaders(t *testing.T) {
	r := Text(200, "ok").
		SetHeader("Connection", "keep-alive").
		SetHeader("Content-Length", "999")
	raw := string(r.Bytes())
	if got := strings.Count(raw, "Connection:"); got != 1 {
		t.Fatalf("Connection header appears %d times:\n%s", got, raw)
	}
	if got := strings.Count(raw, "Content-Length:"); got != 1 {
		t.Fatalf("Content-Length header appears %d times:\n%s", got, raw)
	}
	resp := parseWire(t, r.Bytes())
	if got := resp.Header.Get("Connection"); got != "close" {
		t.Fatalf("Connection = %q, want the canonical close", got)
	}
	if resp.ContentLength != 2 {
		t.Fatalf("Content-Length = %d, want 2", resp.ContentLength)
	}
}

func TestErrorEnvelope(t *testing.T) {
	resp := parseWire(t, Error(404, "route not found").Bytes())
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"route not found"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	req := &Request{Method: "OPTIONS", Headers: http.Header{"Origin": {"https://app.example"}}}
	resp := cfg.Preflight(req)
	if resp.Status != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.Status)
	}
	if got := resp.Headers.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
	if !strings.Contains(resp.Headers.Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatal("allow-methods missing DELETE")
	}
	if resp.Headers.Get("Access-Control-Max-Age") != "86400" {
		t.Fatal("max-age not set")
	}
}

func TestCORSPreflightDeniedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://good.example"}}
	req := &Request{Method: "OPTIONS", Headers: http.Header{"Origin": {"https://evil.example"}}}
	if resp := cfg.Preflight(req); resp.Status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Status)
	}
}

func TestCORSCredentialsEchoOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true
	resp := Text(200, "ok")
	cfg.Apply("https://app.example", resp)
	if got := resp.Headers.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow-origin = %q, credentialed policy must echo", got)
	}
	if resp.Headers.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("allow-credentials missing")
	}
}

func TestCORSApplySkipsDisallowed(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://good.example"}}
	resp := Text(200, "ok")
	cfg.Apply("https://evil.example", resp)
	if resp.Headers.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("disallowed origin must not receive CORS headers")
	}
}
