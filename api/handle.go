// File: api/handle.go
// Package api
// License: Apache-2.0
//
// ServerHandle is the non-owning server surface passed to controllers,
// handlers, and middleware. The server owns router, membership, and registry;
// everything else talks back through this handle.

package api

import "github.com/rs/zerolog"

// ServerHandle exposes the callback surface of the running server. All methods
// must be called from the loop goroutine (handlers and middleware already run
// there); the queue publisher is the supported out-of-process entry point.
type ServerHandle interface {
	// Emit encodes {event,data} as a single text frame and queues it for one client.
	Emit(client ClientID, event string, data any) error

	// Broadcast targets clients by namespace and room. Empty room targets the
	// whole namespace; empty namespace and room targets every ws client.
	Broadcast(event string, data any, namespace, room string) error

	// JoinNamespace moves the client into ns, leaving its previous namespace
	// and all rooms.
	JoinNamespace(client ClientID, ns string) error

	// JoinRoom adds the client to a room inside its current namespace.
	JoinRoom(client ClientID, room string) error

	// LeaveRoom removes the client from a room inside its current namespace.
	LeaveRoom(client ClientID, room string) error

	// LeaveAllRooms removes the client from every room in its namespace
	// without changing the namespace membership.
	LeaveAllRooms(client ClientID) error

	// ClientsIn lists clients in a namespace, or in one of its rooms when
	// room is non-empty.
	ClientsIn(namespace, room string) []ClientID

	// Namespace reports the namespace the client currently belongs to.
	Namespace(client ClientID) (string, bool)

	// SetClientData stores a key in the per-connection user-data map.
	SetClientData(client ClientID, key string, value any)

	// ClientData reads a key from the per-connection user-data map.
	ClientData(client ClientID, key string) (any, bool)

	// DisconnectClient schedules a disconnect with a close frame.
	DisconnectClient(client ClientID) error

	// Logger returns the server logger for handler-side structured logging.
	Logger() *zerolog.Logger

	// Stats returns a snapshot of runtime counters.
	Stats() Stats
}
