// File: reactor/reactor.go
// Package reactor provides the readiness multiplexer the event loop waits
// on: one poller instance watching the listening socket and every client
// socket, with a bounded wait so housekeeping runs even when the wire is
// quiet.
// License: Apache-2.0

package reactor

import "time"

// Event reports readiness for one registered descriptor.
type Event struct {
	FD       int
	Readable bool
	Writable bool

	// Closed is set on hangup or error conditions; the loop schedules a
	// disconnect for the descriptor.
	Closed bool
}

// Poller is the platform readiness interface. Descriptors are watched for
// reads always; write interest is toggled only while a client has buffered
// outbound bytes.
type Poller interface {
	// Add starts watching fd for readability.
	Add(fd int) error

	// SetWriteInterest toggles writability notifications for fd.
	SetWriteInterest(fd int, enabled bool) error

	// Remove stops watching fd. Removing an unknown descriptor is not an
	// error; close paths race with hangup events.
	Remove(fd int) error

	// Wait blocks until readiness or timeout and fills events. It returns
	// the number of events written; zero means the timeout elapsed.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Close releases the poller.
	Close() error
}

// MaxWait bounds any single readiness wait so the loop's periodic work is
// never starved.
const MaxWait = 200 * time.Millisecond
