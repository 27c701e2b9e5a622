//go:build linux

// File: reactor/poller_linux_test.go
// License: Apache-2.0

package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollerReadReadiness(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	a, b := socketPair(t)
	if err := p.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}

	events := make([]Event, 8)

	// Nothing written: the wait must time out.
	n, err := p.Wait(events, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected timeout, got %d events", n)
	}

	if _, err := unix.Write(b, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err = p.Wait(events, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 1 || events[0].FD != a || !events[0].Readable {
		t.Fatalf("expected readable event for fd %d, got %+v", a, events[:n])
	}
}

func TestPollerWriteInterestToggle(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	a, _ := socketPair(t)
	if err := p.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}

	events := make([]Event, 8)

	// Read-only interest: an idle writable socket reports nothing.
	if n, _ := p.Wait(events, 10*time.Millisecond); n != 0 {
		t.Fatalf("unexpected events before write interest: %d", n)
	}

	if err := p.SetWriteInterest(a, true); err != nil {
		t.Fatalf("SetWriteInterest: %v", err)
	}
	n, err := p.Wait(events, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 1 || !events[0].Writable {
		t.Fatalf("expected writable event, got %+v", events[:n])
	}

	if err := p.SetWriteInterest(a, false); err != nil {
		t.Fatalf("SetWriteInterest off: %v", err)
	}
	if n, _ := p.Wait(events, 10*time.Millisecond); n != 0 {
		t.Fatalf("write interest not cleared: %d events", n)
	}
}

func TestPollerHangup(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	a, b := socketPair(t)
	if err := p.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	unix.Close(b)

	events := make([]Event, 8)
	n, err := p.Wait(events, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 1 || !events[0].Closed {
		t.Fatalf("expected closed event, got %+v", events[:n])
	}
}

func TestPollerRemoveUnknownFD(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	a, _ := socketPair(t)
	if err := p.Remove(a); err != nil {
		t.Fatalf("Remove of unregistered fd must be a no-op, got %v", err)
	}
}
