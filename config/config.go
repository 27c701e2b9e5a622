// File: config/config.go
// Package config holds the server configuration: constructor-visible options,
// protocol timeouts, and resource bounds, with defaults suitable for
// development. Overrides come from functional server options, SOCKEON_*
// environment variables, or an optional YAML file.
// License: Apache-2.0

package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sockeon/sockeon-go/httpx"
	"github.com/sockeon/sockeon-go/ratelimit"
)

// Config is the full server configuration.
type Config struct {
	Host  string
	Port  int
	Debug bool

	CORS      httpx.CORSConfig
	RateLimit ratelimit.Config

	// AuthKey enables handshake tokens when non-empty. BroadcastSalt is
	// mixed into the signing secret; TokenExpiration bounds token lifetime.
	AuthKey         string
	BroadcastSalt   string
	TokenExpiration time.Duration

	// QueueFile is the broadcast queue path; empty disables the reader.
	QueueFile string

	// TrustProxy enables client-IP resolution from ProxyHeaders.
	TrustProxy   bool
	ProxyHeaders []string

	// Protocol timeouts.
	HTTPBufferTimeout  time.Duration // incomplete HTTP request buffering
	HandshakeTimeout   time.Duration // sniff + upgrade completion
	IdleTimeout        time.Duration // ws silence before a ping probe
	MaxUnansweredPings int           // probes before the connection closes

	// Resource bounds.
	ReadChunkSize  int // bytes read per readiness event
	MaxRequestBody int // HTTP body cap
	WriteHighWater int // outbound backlog cap per client

	// TickInterval bounds the readiness wait so housekeeping runs.
	TickInterval time.Duration

	// Accept-flood guard: sustained accepts/sec and burst.
	AcceptRate  float64
	AcceptBurst int
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               6001,
		CORS:               httpx.DefaultCORSConfig(),
		RateLimit:          ratelimit.DefaultConfig(),
		TokenExpiration:    time.Hour,
		QueueFile:          DefaultQueueFile(),
		ProxyHeaders:       []string{"X-Forwarded-For", "X-Real-IP"},
		HTTPBufferTimeout:  30 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		IdleTimeout:        300 * time.Second,
		MaxUnansweredPings: 2,
		ReadChunkSize:      8192,
		MaxRequestBody:     16 << 20,
		WriteHighWater:     4 << 20,
		TickInterval:       200 * time.Millisecond,
		AcceptRate:         1024,
		AcceptBurst:        256,
	}
}

// DefaultQueueFile returns the platform temp-dir queue path.
func DefaultQueueFile() string {
	return filepath.Join(os.TempDir(), "sockeon.queue")
}

// Addr renders host:port for the listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ClientConfig is the default dial target for the outbound client, filled
// from SOCKEON_CLIENT_HOST / SOCKEON_CLIENT_PORT.
type ClientConfig struct {
	Host string
	Port int
}

// DefaultClientConfig targets a local server.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{Host: "127.0.0.1", Port: 6001}
}

// Addr renders host:port for dialing.
func (c *ClientConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
