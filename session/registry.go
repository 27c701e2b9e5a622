// File: session/registry.go
// Package session client registry keyed by connection descriptor.
// License: Apache-2.0

package session

import (
	"sync"

	"github.com/sockeon/sockeon-go/api"
)

// Registry maps live client IDs to their state. Mutations happen on the
// event loop; lookups may come from stats readers, so the map is guarded.
type Registry struct {
	mu      sync.RWMutex
	clients map[api.ClientID]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[api.ClientID]*Client)}
}

// Add registers a client under its ID.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
}

// Get looks up a client by ID.
func (r *Registry) Get(id api.ClientID) (*Client, bool) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	return c, ok
}

// Remove drops a client and reports whether it was present.
func (r *Registry) Remove(id api.ClientID) bool {
	r.mu.Lock()
	_, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()
	return ok
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.clients)
	r.mu.RUnlock()
	return n
}

// CountByType tallies clients per protocol type.
func (r *Registry) CountByType() (ws, http, unknown int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		switch c.Type {
		case api.ClientWS:
			ws++
		case api.ClientHTTP:
			http++
		default:
			unknown++
		}
	}
	return ws, http, unknown
}

// ForEach visits every client under the read lock. The callback must not
// add or remove clients; collect IDs first for that.
func (r *Registry) ForEach(fn func(*Client)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		fn(c)
	}
}

// IDs snapshots the live client IDs so callers can mutate while iterating.
func (r *Registry) IDs() []api.ClientID {
	r.mu.RLock()
	out := make([]api.ClientID, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	r.mu.RUnlock()
	return out
}
