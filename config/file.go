// File: config/file.go
// Package config optional YAML configuration file.
// License: Apache-2.0

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/ratelimit"
)

// fileSchema is the YAML shape. Durations are given as Go duration strings
// ("30s", "5m"); zero values mean "keep the default".
type fileSchema struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`

	CORS struct {
		AllowedOrigins   []string `yaml:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials"`
		MaxAge           int      `yaml:"max_age"`
	} `yaml:"cors"`

	RateLimit struct {
		Enabled         *bool    `yaml:"enabled"`
		MaxHTTPRequests int      `yaml:"max_http_requests"`
		MaxMessages     int      `yaml:"max_messages"`
		Window          string   `yaml:"window"`
		Burst           int      `yaml:"burst"`
		Whitelist       []string `yaml:"whitelist"`
		CleanupInterval string   `yaml:"cleanup_interval"`
	} `yaml:"rate_limit"`

	AuthKey         string `yaml:"auth_key"`
	BroadcastSalt   string `yaml:"broadcast_salt"`
	TokenExpiration string `yaml:"token_expiration"`

	QueueFile    string   `yaml:"queue_file"`
	TrustProxy   bool     `yaml:"trust_proxy"`
	ProxyHeaders []string `yaml:"proxy_headers"`

	HTTPBufferTimeout string `yaml:"http_buffer_timeout"`
	HandshakeTimeout  string `yaml:"handshake_timeout"`
	IdleTimeout       string `yaml:"idle_timeout"`
}

// LoadFile reads a YAML file over the defaults.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, api.WrapError(api.ClassValidation, err, "cannot read config file "+path)
	}
	return parseYAML(raw)
}

func parseYAML(raw []byte) (*Config, error) {
	var f fileSchema
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, api.WrapError(api.ClassValidation, err, "cannot parse config file")
	}

	c := Default()
	if f.Host != "" {
		c.Host = f.Host
	}
	if f.Port != 0 {
		c.Port = f.Port
	}
	c.Debug = f.Debug

	if len(f.CORS.AllowedOrigins) > 0 {
		c.CORS.AllowedOrigins = f.CORS.AllowedOrigins
	}
	if len(f.CORS.AllowedMethods) > 0 {
		c.CORS.AllowedMethods = f.CORS.AllowedMethods
	}
	if len(f.CORS.AllowedHeaders) > 0 {
		c.CORS.AllowedHeaders = f.CORS.AllowedHeaders
	}
	c.CORS.AllowCredentials = f.CORS.AllowCredentials
	if f.CORS.MaxAge != 0 {
		c.CORS.MaxAge = f.CORS.MaxAge
	}

	if err := mergeRateLimit(&c.RateLimit, &f); err != nil {
		return nil, err
	}

	if f.AuthKey != "" {
		c.AuthKey = f.AuthKey
	}
	if f.BroadcastSalt != "" {
		c.BroadcastSalt = f.BroadcastSalt
	}
	if f.QueueFile != "" {
		c.QueueFile = f.QueueFile
	}
	c.TrustProxy = f.TrustProxy
	if len(f.ProxyHeaders) > 0 {
		c.ProxyHeaders = f.ProxyHeaders
	}

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{f.TokenExpiration, &c.TokenExpiration},
		{f.HTTPBufferTimeout, &c.HTTPBufferTimeout},
		{f.HandshakeTimeout, &c.HandshakeTimeout},
		{f.IdleTimeout, &c.IdleTimeout},
	} {
		if err := mergeDuration(d.raw, d.dst); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func mergeRateLimit(rl *ratelimit.Config, f *fileSchema) error {
	if f.RateLimit.Enabled != nil {
		rl.Enabled = *f.RateLimit.Enabled
	}
	if f.RateLimit.MaxHTTPRequests != 0 {
		rl.MaxHTTPRequests = f.RateLimit.MaxHTTPRequests
	}
	if f.RateLimit.MaxMessages != 0 {
		rl.MaxMessages = f.RateLimit.MaxMessages
	}
	if f.RateLimit.Burst != 0 {
		rl.Burst = f.RateLimit.Burst
	}
	if len(f.RateLimit.Whitelist) > 0 {
		rl.Whitelist = f.RateLimit.Whitelist
	}
	if err := mergeDuration(f.RateLimit.Window, &rl.Window); err != nil {
		return err
	}
	return mergeDuration(f.RateLimit.CleanupInterval, &rl.CleanupInterval)
}

func mergeDuration(raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return api.Errorf(api.ClassValidation, "invalid duration %q in config file", raw)
	}
	*dst = d
	return nil
}
