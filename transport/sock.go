// File: transport/sock.go
// Package transport wraps the raw non-blocking socket operations the event
// loop drives: listen, accept, read, write, close. Everything returns plain
// descriptors; the loop owns their lifecycle and the reactor watches them.
// License: Apache-2.0

package transport

import "errors"

// ErrWouldBlock reports that a non-blocking operation made no progress and
// the caller should retry on the next readiness event.
var ErrWouldBlock = errors.New("operation would block")

// ErrClosedByPeer reports an orderly end-of-stream on read.
var ErrClosedByPeer = errors.New("connection closed by peer")
