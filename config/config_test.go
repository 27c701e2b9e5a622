// File: config/config_test.go
// Package config defaults, env, and file loader tests.
// License: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Addr() != "0.0.0.0:6001" {
		t.Fatalf("addr = %q", c.Addr())
	}
	if c.HTTPBufferTimeout != 30*time.Second {
		t.Fatalf("http buffer timeout = %v", c.HTTPBufferTimeout)
	}
	if c.HandshakeTimeout != 10*time.Second {
		t.Fatalf("handshake timeout = %v", c.HandshakeTimeout)
	}
	if c.IdleTimeout != 300*time.Second {
		t.Fatalf("idle timeout = %v", c.IdleTimeout)
	}
	if c.MaxUnansweredPings != 2 {
		t.Fatalf("unanswered pings = %d", c.MaxUnansweredPings)
	}
	if c.WriteHighWater != 4<<20 {
		t.Fatalf("high water = %d", c.WriteHighWater)
	}
	if c.TickInterval > 200*time.Millisecond {
		t.Fatalf("tick interval = %v, must stay within 200ms", c.TickInterval)
	}
	if filepath.Base(c.QueueFile) != "sockeon.queue" {
		t.Fatalf("queue file = %q", c.QueueFile)
	}
}

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromEnvOverrides(t *testing.T) {
	c, err := fromEnv(Default(), lookupFrom(map[string]string{
		EnvServerHost:      "10.1.2.3",
		EnvServerPort:      "9100",
		EnvBroadcastSalt:   "pepper",
		EnvTokenExpiration: "120",
	}))
	if err != nil {
		t.Fatalf("fromEnv: %v", err)
	}
	if c.Host != "10.1.2.3" || c.Port != 9100 {
		t.Fatalf("addr = %q", c.Addr())
	}
	if c.BroadcastSalt != "pepper" {
		t.Fatalf("salt = %q", c.BroadcastSalt)
	}
	if c.TokenExpiration != 2*time.Minute {
		t.Fatalf("expiration = %v", c.TokenExpiration)
	}
}

func TestFromEnvLeavesUnsetAlone(t *testing.T) {
	c, err := fromEnv(Default(), lookupFrom(nil))
	if err != nil {
		t.Fatalf("fromEnv: %v", err)
	}
	if c.Host != "0.0.0.0" || c.Port != 6001 {
		t.Fatalf("defaults changed: %q", c.Addr())
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{EnvServerPort: "not-a-port"},
		{EnvServerPort: "0"},
		{EnvServerPort: "70000"},
		{EnvTokenExpiration: "-5"},
		{EnvTokenExpiration: "soon"},
	}
	for _, env := range cases {
		if _, err := fromEnv(Default(), lookupFrom(env)); err == nil {
			t.Errorf("env %v accepted", env)
		}
	}
}

func TestClientFromEnv(t *testing.T) {
	c, err := clientFromEnv(DefaultClientConfig(), lookupFrom(map[string]string{
		EnvClientHost: "svc.internal",
		EnvClientPort: "7777",
	}))
	if err != nil {
		t.Fatalf("clientFromEnv: %v", err)
	}
	if c.Addr() != "svc.internal:7777" {
		t.Fatalf("addr = %q", c.Addr())
	}
}

func TestLoadFile(t *testing.T) {
	raw := []byte(`
host: 127.0.0.1
port: 8080
debug: true
cors:
  allowed_origins: ["https://app.example"]
  allow_credentials: true
rate_limit:
  enabled: true
  max_http_requests: 10
  max_messages: 20
  window: 10s
  whitelist: ["127.0.0.1"]
auth_key: secret
broadcast_salt: pepper
token_expiration: 30m
queue_file: /var/run/sockeon.queue
trust_proxy: true
idle_timeout: 2m
`)
	path := filepath.Join(t.TempDir(), "sockeon.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr() != "127.0.0.1:8080" || !c.Debug {
		t.Fatalf("addr=%q debug=%v", c.Addr(), c.Debug)
	}
	if got := c.CORS.AllowedOrigins; len(got) != 1 || got[0] != "https://app.example" {
		t.Fatalf("origins = %v", got)
	}
	if !c.CORS.AllowCredentials {
		t.Fatal("credentials not set")
	}
	if c.RateLimit.MaxHTTPRequests != 10 || c.RateLimit.Window != 10*time.Second {
		t.Fatalf("rate limit = %+v", c.RateLimit)
	}
	if len(c.RateLimit.Whitelist) != 1 {
		t.Fatalf("whitelist = %v", c.RateLimit.Whitelist)
	}
	if c.AuthKey != "secret" || c.BroadcastSalt != "pepper" {
		t.Fatal("auth settings not loaded")
	}
	if c.TokenExpiration != 30*time.Minute {
		t.Fatalf("expiration = %v", c.TokenExpiration)
	}
	if c.QueueFile != "/var/run/sockeon.queue" || !c.TrustProxy {
		t.Fatalf("queue=%q trust=%v", c.QueueFile, c.TrustProxy)
	}
	if c.IdleTimeout != 2*time.Minute {
		t.Fatalf("idle = %v", c.IdleTimeout)
	}
	// Untouched fields keep their defaults.
	if c.HandshakeTimeout != 10*time.Second {
		t.Fatalf("handshake timeout = %v", c.HandshakeTimeout)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("port: [not a scalar"), 0o644)
	if _, err := LoadFile(bad); err == nil {
		t.Fatal("malformed yaml accepted")
	}

	badDur := filepath.Join(t.TempDir(), "dur.yaml")
	os.WriteFile(badDur, []byte("idle_timeout: nonsense"), 0o644)
	if _, err := LoadFile(badDur); err == nil {
		t.Fatal("bad duration accepted")
	}
}
