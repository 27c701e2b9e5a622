//go:build unix

// File: queue/lock_unix.go
// Package queue advisory flock(2) guards for queue file access.
// License: Apache-2.0

package queue

import (
	"os"

	"golang.org/x/sys/unix"
)

func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
