// File: routing/routes.go
// Package routing implements the declarative route table: WebSocket event
// routes, HTTP routes with {param} path patterns, and connection-event
// listeners. Registration happens before the loop starts; dispatch reads
// are lock-free.
// License: Apache-2.0

package routing

import (
	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/httpx"
	"github.com/sockeon/sockeon-go/middleware"
	"github.com/sockeon/sockeon-go/ratelimit"
)

// WSHandler handles one inbound {event,data} message.
type WSHandler func(h api.ServerHandle, client api.ClientID, data any) error

// HTTPHandler produces the response for one HTTP request.
type HTTPHandler func(h api.ServerHandle, r *httpx.Request) *httpx.Response

// ConnectFunc observes a connection event: fired after handshake success
// and just before socket close.
type ConnectFunc func(h api.ServerHandle, client api.ClientID)

// SocketRoute binds an event name to its handler and dispatch options.
type SocketRoute struct {
	Event         string
	Handler       WSHandler
	Middlewares   []middleware.MessageMiddleware
	ExcludeGlobal []string
	RateLimit     *ratelimit.Limit
}

// HTTPRoute binds (method, path pattern) to its handler and dispatch
// options. Path patterns may contain {name} segments.
type HTTPRoute struct {
	Method        string
	Path          string
	Handler       HTTPHandler
	Middlewares   []middleware.HTTPMiddleware
	ExcludeGlobal []string
	RateLimit     *ratelimit.Limit
}
