//go:build !linux

// File: reactor/poller_stub.go
// Package reactor stub for platforms without a poller implementation.
// License: Apache-2.0

package reactor

import "errors"

// NewPoller returns an error on unsupported platforms.
func NewPoller() (Poller, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
