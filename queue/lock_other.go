//go:build !unix

// File: queue/lock_other.go
// Package queue no-op locking where flock is unavailable.
// License: Apache-2.0

package queue

import "os"

func lockFile(f *os.File) error   { return nil }
func unlockFile(f *os.File) error { return nil }
