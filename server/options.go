// File: server/options.go
// Package server functional options mirroring the constructor surface:
// host, port, debug, CORS, logger, rate limits, auth key, queue file, and
// proxy trust.
// License: Apache-2.0

package server

import (
	"github.com/rs/zerolog"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/config"
	"github.com/sockeon/sockeon-go/httpx"
	"github.com/sockeon/sockeon-go/ratelimit"
)

// Option customises server construction.
type Option func(*Server) error

// WithConfig replaces the entire configuration. Later options still apply
// on top.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) error {
		if cfg == nil {
			return api.ErrInvalidArgument
		}
		s.cfg = cfg
		return nil
	}
}

// WithHost sets the listen host.
func WithHost(host string) Option {
	return func(s *Server) error {
		s.cfg.Host = host
		return nil
	}
}

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(s *Server) error {
		if port < 0 || port > 65535 {
			return api.Errorf(api.ClassValidation, "invalid port %d", port)
		}
		s.cfg.Port = port
		return nil
	}
}

// WithDebug toggles debug logging.
func WithDebug(debug bool) Option {
	return func(s *Server) error {
		s.cfg.Debug = debug
		return nil
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) error {
		s.log = log
		return nil
	}
}

// WithCORS sets the cross-origin policy shared by HTTP and handshakes.
func WithCORS(cors httpx.CORSConfig) Option {
	return func(s *Server) error {
		s.cfg.CORS = cors
		return nil
	}
}

// WithRateLimit sets the global limiter policy.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) error {
		s.cfg.RateLimit = cfg
		return nil
	}
}

// WithAuthKey enables handshake tokens signed with key.
func WithAuthKey(key string) Option {
	return func(s *Server) error {
		s.cfg.AuthKey = key
		return nil
	}
}

// WithQueueFile sets the broadcast queue path; empty disables the reader.
func WithQueueFile(path string) Option {
	return func(s *Server) error {
		s.cfg.QueueFile = path
		return nil
	}
}

// WithTrustProxy enables client-IP resolution from proxy headers.
func WithTrustProxy(trust bool, headers ...string) Option {
	return func(s *Server) error {
		s.cfg.TrustProxy = trust
		if len(headers) > 0 {
			s.cfg.ProxyHeaders = headers
		}
		return nil
	}
}
