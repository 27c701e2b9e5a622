// File: config/env.go
// Package config SOCKEON_* environment overrides.
// License: Apache-2.0

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sockeon/sockeon-go/api"
)

// Environment variable names recognised by the loaders.
const (
	EnvServerHost      = "SOCKEON_SERVER_HOST"
	EnvServerPort      = "SOCKEON_SERVER_PORT"
	EnvClientHost      = "SOCKEON_CLIENT_HOST"
	EnvClientPort      = "SOCKEON_CLIENT_PORT"
	EnvBroadcastSalt   = "SOCKEON_BROADCAST_SALT"
	EnvTokenExpiration = "SOCKEON_TOKEN_EXPIRATION"
)

// FromEnv applies environment overrides to c and returns it. Unset
// variables leave the existing values alone; malformed numeric values are
// a configuration error.
func FromEnv(c *Config) (*Config, error) {
	return fromEnv(c, os.LookupEnv)
}

func fromEnv(c *Config, lookup func(string) (string, bool)) (*Config, error) {
	if v, ok := lookup(EnvServerHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvServerPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, api.Errorf(api.ClassValidation, "%s=%q is not a valid port", EnvServerPort, v)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvBroadcastSalt); ok {
		c.BroadcastSalt = v
	}
	if v, ok := lookup(EnvTokenExpiration); ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, api.Errorf(api.ClassValidation, "%s=%q is not a positive number of seconds", EnvTokenExpiration, v)
		}
		c.TokenExpiration = time.Duration(secs) * time.Second
	}
	return c, nil
}

// ClientFromEnv applies environment overrides to a client config.
func ClientFromEnv(c *ClientConfig) (*ClientConfig, error) {
	return clientFromEnv(c, os.LookupEnv)
}

func clientFromEnv(c *ClientConfig, lookup func(string) (string, bool)) (*ClientConfig, error) {
	if v, ok := lookup(EnvClientHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvClientPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, api.Errorf(api.ClassValidation, "%s=%q is not a valid port", EnvClientPort, v)
		}
		c.Port = port
	}
	return c, nil
}
