// File: api/types.go
// Package api defines the shared contracts of the sockeon runtime:
// client identity, connection lifecycle types, dispatch phases, and the
// server handle surface exposed to handlers and middleware.
// License: Apache-2.0

package api

import "time"

// ClientID identifies a connection for the lifetime of the process.
// It is derived from the socket handle and is stable until disconnect.
type ClientID int

// ClientType tags the detected protocol of a connection.
type ClientType int

const (
	ClientUnknown ClientType = iota
	ClientHTTP
	ClientWS
)

func (t ClientType) String() string {
	switch t {
	case ClientHTTP:
		return "http"
	case ClientWS:
		return "ws"
	default:
		return "unknown"
	}
}

// Phase names the dispatch stage an error was raised in. It travels with
// every error log so operators can trace failures to a loop stage.
type Phase string

const (
	PhaseAccept    Phase = "accept"
	PhaseHandshake Phase = "handshake"
	PhaseDecode    Phase = "decode"
	PhaseDispatch  Phase = "dispatch"
	PhaseBroadcast Phase = "broadcast"
)

// Message is the application envelope carried in WebSocket text frames.
// Inbound frames that do not decode into this shape are dropped silently.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Stats is a point-in-time snapshot of server counters.
type Stats struct {
	StartedAt        time.Time
	ClientsTotal     int
	ClientsWS        int
	ClientsHTTP      int
	Namespaces       int
	Rooms            int
	FramesReceived   int64
	FramesSent       int64
	BytesReceived    int64
	BytesSent        int64
	Broadcasts       int64
	RateLimitDenials int64
	HTTPRequests     int64
}
