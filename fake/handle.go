// File: fake/handle.go
// Package fake provides in-memory test doubles. Handle implements
// api.ServerHandle over a real membership store so controller, middleware,
// and routing tests observe genuine grouping semantics without a socket.
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/membership"
)

// Emitted records one Emit call.
type Emitted struct {
	Client api.ClientID
	Event  string
	Data   any
}

// Broadcasted records one Broadcast call.
type Broadcasted struct {
	Event     string
	Data      any
	Namespace string
	Room      string
}

// Handle is an in-memory api.ServerHandle.
type Handle struct {
	mu sync.Mutex

	Members *membership.Store

	Emits        []Emitted
	Broadcasts   []Broadcasted
	Disconnected []api.ClientID

	data map[api.ClientID]map[string]any
	log  zerolog.Logger

	// EmitErr, when set, is returned by Emit to exercise failure paths.
	EmitErr error
}

// NewHandle returns an empty fake handle with a no-op logger.
func NewHandle() *Handle {
	return &Handle{
		Members: membership.NewStore(),
		data:    make(map[api.ClientID]map[string]any),
		log:     zerolog.Nop(),
	}
}

func (h *Handle) Emit(client api.ClientID, event string, data any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.EmitErr != nil {
		return h.EmitErr
	}
	h.Emits = append(h.Emits, Emitted{Client: client, Event: event, Data: data})
	return nil
}

func (h *Handle) Broadcast(event string, data any, namespace, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Broadcasts = append(h.Broadcasts, Broadcasted{Event: event, Data: data, Namespace: namespace, Room: room})
	return nil
}

func (h *Handle) JoinNamespace(client api.ClientID, ns string) error {
	h.Members.JoinNamespace(client, ns)
	return nil
}

func (h *Handle) JoinRoom(client api.ClientID, room string) error {
	ns, ok := h.Members.NamespaceOf(client)
	if !ok {
		ns = membership.DefaultNamespace
	}
	return h.Members.JoinRoom(client, ns, room)
}

func (h *Handle) LeaveRoom(client api.ClientID, room string) error {
	ns, ok := h.Members.NamespaceOf(client)
	if !ok {
		return api.ErrClientNotFound
	}
	h.Members.LeaveRoom(client, ns, room)
	return nil
}

func (h *Handle) LeaveAllRooms(client api.ClientID) error {
	h.Members.LeaveAllRooms(client)
	return nil
}

func (h *Handle) ClientsIn(namespace, room string) []api.ClientID {
	if room == "" {
		return h.Members.ClientsInNamespace(namespace)
	}
	return h.Members.ClientsInRoom(namespace, room)
}

func (h *Handle) Namespace(client api.ClientID) (string, bool) {
	return h.Members.NamespaceOf(client)
}

func (h *Handle) SetClientData(client api.ClientID, key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.data[client]
	if !ok {
		m = make(map[string]any)
		h.data[client] = m
	}
	m[key] = value
}

func (h *Handle) ClientData(client api.ClientID, key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.data[client]
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func (h *Handle) DisconnectClient(client api.ClientID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Disconnected = append(h.Disconnected, client)
	return nil
}

func (h *Handle) Logger() *zerolog.Logger { return &h.log }

func (h *Handle) Stats() api.Stats {
	ns, rooms := h.Members.Counts()
	return api.Stats{Namespaces: ns, Rooms: rooms}
}

var _ api.ServerHandle = (*Handle)(nil)
