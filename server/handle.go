// File: server/handle.go
// Package server api.ServerHandle implementation: the callback surface
// handlers and middleware use to emit, broadcast, and manage membership.
// License: Apache-2.0

package server

import (
	"encoding/json"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/membership"
	"github.com/sockeon/sockeon-go/protocol"
	"github.com/sockeon/sockeon-go/session"
)

// Emit encodes {event,data} as one text frame and queues it for the client.
func (s *Server) Emit(client api.ClientID, event string, data any) error {
	c, ok := s.registry.Get(client)
	if !ok {
		return api.ErrClientNotFound
	}
	if c.Type != api.ClientWS || !c.HandshakeDone {
		return api.ErrClientNotWS
	}
	payload, err := json.Marshal(api.Message{Event: event, Data: data})
	if err != nil {
		return api.WrapError(api.ClassHandler, err, "cannot encode message")
	}
	frame, err := protocol.EncodeText(payload)
	if err != nil {
		return api.WrapError(api.ClassProtocol, err, "cannot frame message")
	}
	return s.send(c, frame)
}

// Broadcast encodes the message once and writes it to every resolved
// target. Per-socket failures disconnect that client but never abort the
// broadcast.
func (s *Server) Broadcast(event string, data any, namespace, room string) error {
	payload, err := json.Marshal(api.Message{Event: event, Data: data})
	if err != nil {
		return api.WrapError(api.ClassHandler, err, "cannot encode broadcast")
	}
	frame, err := protocol.EncodeText(payload)
	if err != nil {
		return api.WrapError(api.ClassProtocol, err, "cannot frame broadcast")
	}

	s.broadcasts.Add(1)
	for _, id := range s.resolveTargets(namespace, room) {
		c, ok := s.registry.Get(id)
		if !ok || c.Type != api.ClientWS || !c.HandshakeDone {
			continue
		}
		if err := s.send(c, frame); err != nil {
			s.logError(err, id, api.PhaseBroadcast, "broadcast write failed")
			s.disconnect(c, protocol.CloseTryAgainLater, "write backlog exceeded")
		}
	}
	return nil
}

// resolveTargets applies the broadcast scoping rules: (ns, room) selects the
// room, ns alone the namespace, neither selects every ws client.
func (s *Server) resolveTargets(namespace, room string) []api.ClientID {
	switch {
	case namespace != "" && room != "":
		return s.members.ClientsInRoom(namespace, room)
	case namespace != "":
		return s.members.ClientsInNamespace(namespace)
	default:
		var ids []api.ClientID
		s.registry.ForEach(func(c *session.Client) {
			if c.Type == api.ClientWS && c.HandshakeDone {
				ids = append(ids, c.ID)
			}
		})
		return ids
	}
}

// JoinNamespace moves the client into ns.
func (s *Server) JoinNamespace(client api.ClientID, ns string) error {
	if _, ok := s.registry.Get(client); !ok {
		return api.ErrClientNotFound
	}
	s.members.JoinNamespace(client, ns)
	return nil
}

// JoinRoom adds the client to a room in its current namespace.
func (s *Server) JoinRoom(client api.ClientID, room string) error {
	ns, ok := s.members.NamespaceOf(client)
	if !ok {
		ns = membership.DefaultNamespace
	}
	return s.members.JoinRoom(client, ns, room)
}

// LeaveRoom removes the client from a room in its current namespace.
func (s *Server) LeaveRoom(client api.ClientID, room string) error {
	ns, ok := s.members.NamespaceOf(client)
	if !ok {
		return api.ErrClientNotFound
	}
	s.members.LeaveRoom(client, ns, room)
	return nil
}

// LeaveAllRooms removes the client from every room in its namespace.
func (s *Server) LeaveAllRooms(client api.ClientID) error {
	if _, ok := s.members.NamespaceOf(client); !ok {
		return api.ErrClientNotFound
	}
	s.members.LeaveAllRooms(client)
	return nil
}

// ClientsIn lists namespace or room members.
func (s *Server) ClientsIn(namespace, room string) []api.ClientID {
	if room == "" {
		return s.members.ClientsInNamespace(namespace)
	}
	return s.members.ClientsInRoom(namespace, room)
}

// Namespace reports the client's current namespace.
func (s *Server) Namespace(client api.ClientID) (string, bool) {
	return s.members.NamespaceOf(client)
}

// SetClientData stores a key in the client's user-data bag.
func (s *Server) SetClientData(client api.ClientID, key string, value any) {
	if c, ok := s.registry.Get(client); ok {
		c.SetData(key, value)
	}
}

// ClientData reads a key from the client's user-data bag.
func (s *Server) ClientData(client api.ClientID, key string) (any, bool) {
	c, ok := s.registry.Get(client)
	if !ok {
		return nil, false
	}
	return c.Data(key)
}

// DisconnectClient closes the connection with a going-away close frame.
func (s *Server) DisconnectClient(client api.ClientID) error {
	c, ok := s.registry.Get(client)
	if !ok {
		return api.ErrClientNotFound
	}
	s.disconnect(c, protocol.CloseGoingAway, "disconnected by server")
	return nil
}
