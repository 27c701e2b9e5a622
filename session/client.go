// File: session/client.go
// Package session holds per-connection state: protocol type, inbound and
// outbound buffers, fragmentation state, activity timestamps, and the
// user-data bag. The event loop owns all mutation; the registry only guards
// the map itself.
// License: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/protocol"
)

// Client is one accepted connection. Its ID is the connection's file
// descriptor, which is unique among live connections by construction.
type Client struct {
	ID   api.ClientID
	FD   int
	Type api.ClientType

	// RemoteAddr is the socket peer; RemoteIP is the effective address after
	// trusted-proxy header resolution and is what rate limiting keys on.
	RemoteAddr string
	RemoteIP   string

	// Inbound accumulates raw bytes until a sniffer, parser, or decoder
	// consumes them.
	Inbound []byte

	// Assembler carries WebSocket fragmentation state across frames.
	Assembler protocol.Assembler

	// outbound is a FIFO of encoded wire chunks. pending holds the unwritten
	// tail of the chunk currently being flushed, since partial writes must
	// resume mid-chunk.
	outbound      *queue.Queue
	pending       []byte
	outboundBytes int

	// KeepAlive marks an HTTP connection that stays open for another request.
	KeepAlive bool

	// CloseWhenDrained closes the socket once the outbound backlog flushes,
	// used after a final HTTP response or a close frame.
	CloseWhenDrained bool

	// HandshakeDone is set once the 101 response is queued; frames are only
	// decoded afterwards.
	HandshakeDone bool

	// Close handshake state.
	CloseSent     bool
	CloseReceived bool

	// LastPing is when the most recent idle probe went out.
	LastPing time.Time

	ConnectedAt  time.Time
	lastActivity time.Time
	pingsPending int

	mu   sync.RWMutex
	data map[string]any
}

// NewClient wraps an accepted descriptor. The protocol type stays unknown
// until the first bytes are sniffed.
func NewClient(fd int, remoteAddr, remoteIP string, now time.Time) *Client {
	return &Client{
		ID:           api.ClientID(fd),
		FD:           fd,
		Type:         api.ClientUnknown,
		RemoteAddr:   remoteAddr,
		RemoteIP:     remoteIP,
		outbound:     queue.New(),
		ConnectedAt:  now,
		lastActivity: now,
		data:         make(map[string]any),
	}
}

// Touch records inbound activity, resetting idle tracking and any
// outstanding ping count.
func (c *Client) Touch(now time.Time) {
	c.lastActivity = now
	c.pingsPending = 0
}

// IdleFor reports how long the connection has been silent.
func (c *Client) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.lastActivity)
}

// PingSent counts an idle probe and returns how many are unanswered.
func (c *Client) PingSent() int {
	c.pingsPending++
	return c.pingsPending
}

// PingsOutstanding reports unanswered idle probes.
func (c *Client) PingsOutstanding() int { return c.pingsPending }

// EnqueueWrite appends an encoded chunk to the outbound FIFO. It fails with
// ErrWriteOverflow when the buffered total would exceed limit (0 disables
// the check); the caller decides whether that closes the connection.
func (c *Client) EnqueueWrite(chunk []byte, limit int) error {
	if len(chunk) == 0 {
		return nil
	}
	if limit > 0 && c.outboundBytes+len(chunk) > limit {
		return api.ErrWriteOverflow
	}
	c.outbound.Add(chunk)
	c.outboundBytes += len(chunk)
	return nil
}

// NextWrite returns the chunk the flusher should write next, resuming a
// partially written chunk first. It returns false when nothing is buffered.
func (c *Client) NextWrite() ([]byte, bool) {
	if len(c.pending) > 0 {
		return c.pending, true
	}
	if c.outbound.Length() == 0 {
		return nil, false
	}
	c.pending = c.outbound.Remove().([]byte)
	return c.pending, true
}

// ConsumeWrite advances past n written bytes of the current chunk.
func (c *Client) ConsumeWrite(n int) {
	if n <= 0 {
		return
	}
	if n > len(c.pending) {
		n = len(c.pending)
	}
	c.pending = c.pending[n:]
	c.outboundBytes -= n
	if len(c.pending) == 0 {
		c.pending = nil
	}
}

// HasBuffered reports whether any outbound bytes remain unflushed.
func (c *Client) HasBuffered() bool {
	return len(c.pending) > 0 || c.outbound.Length() > 0
}

// BufferedBytes returns the total outbound backlog.
func (c *Client) BufferedBytes() int { return c.outboundBytes }

// SetData stores a user-data value on the client.
func (c *Client) SetData(key string, value any) {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
}

// Data retrieves a user-data value.
func (c *Client) Data(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()
	return v, ok
}

// DataSnapshot copies the whole user-data bag.
func (c *Client) DataSnapshot() map[string]any {
	c.mu.RLock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	c.mu.RUnlock()
	return out
}
