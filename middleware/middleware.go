// File: middleware/middleware.go
// Package middleware implements the three dispatch pipelines: HTTP requests,
// WebSocket messages, and WebSocket handshakes. Each pipeline is a named
// global stack plus per-route additions; routes opt out of individual
// globals by name. A middleware short-circuits by returning without calling
// next.
// License: Apache-2.0

package middleware

import (
	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/httpx"
	"github.com/sockeon/sockeon-go/protocol"
)

// Continuations passed to each middleware.
type (
	HTTPNext      func() *httpx.Response
	MessageNext   func() error
	HandshakeNext func() error
)

// HTTPMiddleware wraps HTTP dispatch. Returning a response without calling
// next short-circuits; returning nil with no next call yields a 500.
type HTTPMiddleware func(*httpx.Request, HTTPNext, api.ServerHandle) *httpx.Response

// MessageMiddleware wraps WebSocket event dispatch. A non-nil error drops
// the event; the client stays connected.
type MessageMiddleware func(api.ClientID, string, any, MessageNext, api.ServerHandle) error

// HandshakeMiddleware runs before the 101 response. ErrHandshakeDenied maps
// to a 403; any other error maps to a 500 and the socket closes.
type HandshakeMiddleware func(api.ClientID, *protocol.HandshakeRequest, HandshakeNext, api.ServerHandle) error

type namedHTTP struct {
	name string
	fn   HTTPMiddleware
}

type namedMessage struct {
	name string
	fn   MessageMiddleware
}

type namedHandshake struct {
	name string
	fn   HandshakeMiddleware
}

// Stack holds the global middlewares of all three pipelines in insertion
// order. Registration happens before Run is called; the stack is read-only
// afterwards.
type Stack struct {
	http      []namedHTTP
	message   []namedMessage
	handshake []namedHandshake
}

// NewStack returns an empty middleware stack.
func NewStack() *Stack { return &Stack{} }

// UseHTTP appends a named global HTTP middleware.
func (s *Stack) UseHTTP(name string, fn HTTPMiddleware) {
	s.http = append(s.http, namedHTTP{name: name, fn: fn})
}

// UseMessage appends a named global WebSocket-message middleware.
func (s *Stack) UseMessage(name string, fn MessageMiddleware) {
	s.message = append(s.message, namedMessage{name: name, fn: fn})
}

// UseHandshake appends a named global handshake middleware.
func (s *Stack) UseHandshake(name string, fn HandshakeMiddleware) {
	s.handshake = append(s.handshake, namedHandshake{name: name, fn: fn})
}

func excluded(name string, exclude []string) bool {
	for _, e := range exclude {
		if e == name {
			return true
		}
	}
	return false
}

// RunHTTP executes (globals minus exclude) followed by the route's own
// middlewares, ending in final. The returned response propagates back
// through the chain.
func (s *Stack) RunHTTP(req *httpx.Request, h api.ServerHandle, route []HTTPMiddleware, exclude []string, final HTTPNext) *httpx.Response {
	chain := make([]HTTPMiddleware, 0, len(s.http)+len(route))
	for _, m := range s.http {
		if !excluded(m.name, exclude) {
			chain = append(chain, m.fn)
		}
	}
	chain = append(chain, route...)

	var run func(i int) *httpx.Response
	run = func(i int) *httpx.Response {
		if i == len(chain) {
			return final()
		}
		return chain[i](req, func() *httpx.Response { return run(i + 1) }, h)
	}
	return run(0)
}

// RunMessage executes the WebSocket-message pipeline for one inbound event.
func (s *Stack) RunMessage(id api.ClientID, event string, data any, h api.ServerHandle, route []MessageMiddleware, exclude []string, final MessageNext) error {
	chain := make([]MessageMiddleware, 0, len(s.message)+len(route))
	for _, m := range s.message {
		if !excluded(m.name, exclude) {
			chain = append(chain, m.fn)
		}
	}
	chain = append(chain, route...)

	var run func(i int) error
	run = func(i int) error {
		if i == len(chain) {
			return final()
		}
		return chain[i](id, event, data, func() error { return run(i + 1) }, h)
	}
	return run(0)
}

// RunHandshake executes the handshake pipeline. A nil return admits the
// upgrade whether or not every middleware called next.
func (s *Stack) RunHandshake(id api.ClientID, hs *protocol.HandshakeRequest, h api.ServerHandle, route []HandshakeMiddleware, exclude []string, final HandshakeNext) error {
	chain := make([]HandshakeMiddleware, 0, len(s.handshake)+len(route))
	for _, m := range s.handshake {
		if !excluded(m.name, exclude) {
			chain = append(chain, m.fn)
		}
	}
	chain = append(chain, route...)

	var run func(i int) error
	run = func(i int) error {
		if i == len(chain) {
			return final()
		}
		return chain[i](id, hs, func() error { return run(i + 1) }, h)
	}
	return run(0)
}
