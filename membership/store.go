// File: membership/store.go
// Package membership tracks which namespace and rooms each connected client
// belongs to. The store enforces the grouping invariants: one namespace per
// client, room membership only inside the client's namespace, and automatic
// pruning of empty groups.
// License: Apache-2.0

package membership

import (
	"sort"
	"sync"

	"github.com/sockeon/sockeon-go/api"
)

// DefaultNamespace is where every WebSocket client lands after the
// handshake. It is never pruned.
const DefaultNamespace = "/"

type namespace struct {
	clients map[api.ClientID]struct{}
	rooms   map[string]map[api.ClientID]struct{}
}

func newNamespace() *namespace {
	return &namespace{
		clients: make(map[api.ClientID]struct{}),
		rooms:   make(map[string]map[api.ClientID]struct{}),
	}
}

// Store is the membership registry. All mutations run on the event loop,
// but reads may come from outside it (stats, tests), so access is guarded.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	byClient   map[api.ClientID]string
}

// NewStore returns a store with the default namespace pre-created.
func NewStore() *Store {
	s := &Store{
		namespaces: make(map[string]*namespace),
		byClient:   make(map[api.ClientID]string),
	}
	s.namespaces[DefaultNamespace] = newNamespace()
	return s
}

// JoinNamespace moves the client into ns, leaving the previous namespace
// and every room in it first. Empty namespace names resolve to the default.
func (s *Store) JoinNamespace(id api.ClientID, ns string) {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.byClient[id]; ok {
		if current == ns {
			return
		}
		s.leaveNamespaceLocked(id, current)
	}
	target, ok := s.namespaces[ns]
	if !ok {
		target = newNamespace()
		s.namespaces[ns] = target
	}
	target.clients[id] = struct{}{}
	s.byClient[id] = ns
}

// LeaveNamespace detaches the client from ns and all of its rooms. Clients
// removed from their namespace rejoin the default one so they always remain
// addressable for broadcasts.
func (s *Store) LeaveNamespace(id api.ClientID, ns string) {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.Lock()
	if s.byClient[id] != ns {
		s.mu.Unlock()
		return
	}
	s.leaveNamespaceLocked(id, ns)
	s.mu.Unlock()

	if ns != DefaultNamespace {
		s.JoinNamespace(id, DefaultNamespace)
	}
}

// leaveNamespaceLocked removes the client from ns and prunes empty groups.
func (s *Store) leaveNamespaceLocked(id api.ClientID, ns string) {
	n, ok := s.namespaces[ns]
	if !ok {
		return
	}
	delete(n.clients, id)
	delete(s.byClient, id)
	for room, members := range n.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(n.rooms, room)
		}
	}
	if len(n.clients) == 0 && len(n.rooms) == 0 && ns != DefaultNamespace {
		delete(s.namespaces, ns)
	}
}

// JoinRoom adds the client to a room inside its current namespace. A client
// with no namespace joins the default one first. Room membership in a
// namespace the client does not belong to is rejected.
func (s *Store) JoinRoom(id api.ClientID, ns, room string) error {
	if ns == "" {
		ns = DefaultNamespace
	}
	if room == "" {
		return api.ErrInvalidArgument
	}

	s.mu.Lock()
	current, ok := s.byClient[id]
	s.mu.Unlock()
	if !ok && ns == DefaultNamespace {
		s.JoinNamespace(id, DefaultNamespace)
		current = DefaultNamespace
	} else if !ok || current != ns {
		return api.Errorf(api.ClassValidation, "client %d is not in namespace %q", id, ns)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.namespaces[ns]
	if n == nil {
		return api.Errorf(api.ClassValidation, "namespace %q does not exist", ns)
	}
	members, ok := n.rooms[room]
	if !ok {
		members = make(map[api.ClientID]struct{})
		n.rooms[room] = members
	}
	members[id] = struct{}{}
	return nil
}

// LeaveRoom removes the client from one room without touching its namespace
// membership. Emptied rooms are pruned.
func (s *Store) LeaveRoom(id api.ClientID, ns, room string) {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.namespaces[ns]
	if !ok {
		return
	}
	members, ok := n.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(n.rooms, room)
	}
}

// LeaveAllRooms removes the client from every room in its namespace while
// keeping the namespace membership itself. Emptied rooms are pruned.
func (s *Store) LeaveAllRooms(id api.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.byClient[id]
	if !ok {
		return
	}
	n, ok := s.namespaces[ns]
	if !ok {
		return
	}
	for room, members := range n.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(n.rooms, room)
		}
	}
}

// Remove erases the client from every structure. Called on disconnect.
func (s *Store) Remove(id api.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.byClient[id]; ok {
		s.leaveNamespaceLocked(id, ns)
	}
}

// NamespaceOf returns the namespace the client currently belongs to.
func (s *Store) NamespaceOf(id api.ClientID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.byClient[id]
	return ns, ok
}

// RoomsOf lists the rooms the client is in, sorted for stable output.
func (s *Store) RoomsOf(id api.ClientID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.byClient[id]
	if !ok {
		return nil
	}
	n := s.namespaces[ns]
	var rooms []string
	for room, members := range n.rooms {
		if _, in := members[id]; in {
			rooms = append(rooms, room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// ClientsInNamespace returns the members of ns.
func (s *Store) ClientsInNamespace(ns string) []api.ClientID {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.namespaces[ns]
	if !ok {
		return nil
	}
	return collectIDs(n.clients)
}

// ClientsInRoom returns the members of one room within ns.
func (s *Store) ClientsInRoom(ns, room string) []api.ClientID {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.namespaces[ns]
	if !ok {
		return nil
	}
	members, ok := n.rooms[room]
	if !ok {
		return nil
	}
	return collectIDs(members)
}

// Namespaces lists the live namespace names, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoomsIn lists the live room names inside ns, sorted.
func (s *Store) RoomsIn(ns string) []string {
	if ns == "" {
		ns = DefaultNamespace
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.namespaces[ns]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(n.rooms))
	for room := range n.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Counts reports namespace and room totals for stats.
func (s *Store) Counts() (namespaces, rooms int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	namespaces = len(s.namespaces)
	for _, n := range s.namespaces {
		rooms += len(n.rooms)
	}
	return namespaces, rooms
}

func collectIDs(set map[api.ClientID]struct{}) []api.ClientID {
	ids := make([]api.ClientID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
