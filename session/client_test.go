// File: session/client_test.go
// Package session buffer and registry tests.
// License: Apache-2.0

package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sockeon/sockeon-go/api"
)

func TestOutboundFIFOOrder(t *testing.T) {
	c := NewClient(5, "127.0.0.1:5000", "127.0.0.1", time.Now())
	c.EnqueueWrite([]byte("first"), 0)
	c.EnqueueWrite([]byte("second"), 0)

	chunk, ok := c.NextWrite()
	if !ok || !bytes.Equal(chunk, []byte("first")) {
		t.Fatalf("next = %q %v", chunk, ok)
	}
	c.ConsumeWrite(len(chunk))

	chunk, ok = c.NextWrite()
	if !ok || !bytes.Equal(chunk, []byte("second")) {
		t.Fatalf("next = %q %v", chunk, ok)
	}
	c.ConsumeWrite(len(chunk))

	if c.HasBuffered() {
		t.Fatal("buffer should be drained")
	}
	if c.BufferedBytes() != 0 {
		t.Fatalf("buffered bytes = %d", c.BufferedBytes())
	}
}

func TestPartialWriteResumesMidChunk(t *testing.T) {
	c := NewClient(5, "127.0.0.1:5000", "127.0.0.1", time.Now())
	c.EnqueueWrite([]byte("abcdef"), 0)

	chunk, _ := c.NextWrite()
	c.ConsumeWrite(2) // pretend the socket took only "ab"

	chunk, ok := c.NextWrite()
	if !ok || !bytes.Equal(chunk, []byte("cdef")) {
		t.Fatalf("resume chunk = %q %v, want cdef", chunk, ok)
	}
	if c.BufferedBytes() != 4 {
		t.Fatalf("buffered bytes = %d, want 4", c.BufferedBytes())
	}
}

func TestEnqueueWriteHighWater(t *testing.T) {
	c := NewClient(5, "127.0.0.1:5000", "127.0.0.1", time.Now())
	if err := c.EnqueueWrite(make([]byte, 10), 16); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	err := c.EnqueueWrite(make([]byte, 7), 16)
	if !errors.Is(err, api.ErrWriteOverflow) {
		t.Fatalf("err = %v, want ErrWriteOverflow", err)
	}
	// Rejected chunk must not count against the backlog.
	if c.BufferedBytes() != 10 {
		t.Fatalf("buffered bytes = %d, want 10", c.BufferedBytes())
	}
}

func TestIdleTrackingAndPings(t *testing.T) {
	start := time.Now()
	c := NewClient(5, "127.0.0.1:5000", "127.0.0.1", start)

	later := start.Add(3 * time.Second)
	if got := c.IdleFor(later); got != 3*time.Second {
		t.Fatalf("idle = %v", got)
	}
	if n := c.PingSent(); n != 1 {
		t.Fatalf("pings = %d", n)
	}
	if n := c.PingSent(); n != 2 {
		t.Fatalf("pings = %d", n)
	}
	c.Touch(later)
	if got := c.IdleFor(later); got != 0 {
		t.Fatalf("idle after touch = %v", got)
	}
	if n := c.PingSent(); n != 1 {
		t.Fatal("touch must reset outstanding pings")
	}
}

func TestUserDataBag(t *testing.T) {
	c := NewClient(5, "127.0.0.1:5000", "127.0.0.1", time.Now())
	c.SetData("user", "ada")
	v, ok := c.Data("user")
	if !ok || v != "ada" {
		t.Fatalf("data = %v %v", v, ok)
	}
	if _, ok := c.Data("missing"); ok {
		t.Fatal("missing key reported present")
	}
	snap := c.DataSnapshot()
	snap["user"] = "mutated"
	if v, _ := c.Data("user"); v != "ada" {
		t.Fatal("snapshot must be a copy")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	a := NewClient(3, "a:1", "a", now)
	a.Type = api.ClientWS
	b := NewClient(4, "b:1", "b", now)
	b.Type = api.ClientHTTP
	r.Add(a)
	r.Add(b)

	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
	got, ok := r.Get(3)
	if !ok || got.ID != 3 {
		t.Fatalf("get = %+v %v", got, ok)
	}
	ws, http, unknown := r.CountByType()
	if ws != 1 || http != 1 || unknown != 0 {
		t.Fatalf("counts = %d %d %d", ws, http, unknown)
	}

	if !r.Remove(3) {
		t.Fatal("remove reported missing")
	}
	if r.Remove(3) {
		t.Fatal("double remove reported present")
	}
	if _, ok := r.Get(3); ok {
		t.Fatal("removed client still found")
	}
}

func TestClientIDDerivedFromFD(t *testing.T) {
	c := NewClient(42, "x:1", "x", time.Now())
	if c.ID != api.ClientID(42) || c.FD != 42 {
		t.Fatalf("id=%d fd=%d", c.ID, c.FD)
	}
}
