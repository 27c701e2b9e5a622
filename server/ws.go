// File: server/ws.go
// Package server WebSocket drain rules: handshake completion, frame
// decoding, control-frame replies, fragmentation reassembly, and event
// dispatch through the message pipeline.
// License: Apache-2.0

package server

import (
	"encoding/json"
	"errors"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/protocol"
	"github.com/sockeon/sockeon-go/ratelimit"
	"github.com/sockeon/sockeon-go/routing"
	"github.com/sockeon/sockeon-go/session"
)

// drainWS handles a readable WebSocket client: complete the handshake
// first, then decode as many whole frames as the buffer holds.
func (s *Server) drainWS(c *session.Client) {
	if !c.HandshakeDone {
		if !s.tryHandshake(c) {
			return
		}
		// Residual bytes after the upgrade request are the first frames.
	}
	s.drainFrames(c)
}

// tryHandshake attempts to complete the upgrade. It returns true once the
// 101 response is queued; false while still buffering or after a reject.
func (s *Server) tryHandshake(c *session.Client) bool {
	hs, consumed, err := protocol.ParseHandshake(c.Inbound)
	if err != nil {
		var he *protocol.HandshakeError
		if !errors.As(err, &he) {
			he = &protocol.HandshakeError{Status: 400, Reason: "malformed upgrade request"}
		}
		s.rejectHandshake(c, he.Status, he.Reason)
		return false
	}
	if hs == nil {
		return false
	}
	c.Inbound = consume(c.Inbound, consumed)
	hs.RemoteAddr = c.RemoteAddr
	if ip := s.proxyIP(hs.Headers); ip != "" {
		c.RemoteIP = ip
	}

	if he := protocol.ValidateHandshake(hs, s.cfg.CORS.AllowedOrigins); he != nil {
		s.rejectHandshake(c, he.Status, he.Reason)
		return false
	}

	if err := s.runHandshakeChain(c.ID, hs); err != nil {
		if errors.Is(err, api.ErrHandshakeDenied) {
			s.rejectHandshake(c, 403, "handshake denied")
		} else {
			s.logError(err, c.ID, api.PhaseHandshake, "handshake middleware failed")
			s.rejectHandshake(c, 500, "internal server error")
		}
		return false
	}

	echo := protocol.OriginExplicit(s.cfg.CORS.AllowedOrigins) && hs.Origin != ""
	if err := s.send(c, protocol.BuildAcceptResponse(hs, echo)); err != nil {
		return false
	}
	c.HandshakeDone = true
	s.log.Debug().
		Str("component", "handshake").
		Int("client_id", int(c.ID)).
		Str("path", hs.Path).
		Msg("websocket established")

	for _, fn := range s.table.ConnectListeners() {
		s.runListener(fn, c.ID)
	}
	return true
}

// runHandshakeChain executes the handshake middleware with a panic
// boundary; a panic maps to an internal error like any other failure.
func (s *Server) runHandshakeChain(id api.ClientID, hs *protocol.HandshakeRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.Errorf(api.ClassHandler, "handshake middleware panic: %v", r)
		}
	}()
	return s.stack.RunHandshake(id, hs, s, nil, nil, func() error { return nil })
}

// rejectHandshake answers with the given status and closes after the
// response flushes.
func (s *Server) rejectHandshake(c *session.Client, status int, reason string) {
	c.EnqueueWrite(protocol.BuildRejectResponse(status, reason), 0)
	c.CloseWhenDrained = true
	s.flushClient(c)
}

// drainFrames decodes and processes every complete frame in the buffer.
// Decode errors fail the connection after already-decoded frames are
// handled, so control replies owed are still sent.
func (s *Server) drainFrames(c *session.Client) {
	frames, consumed, decodeErr := protocol.DecodeFrames(c.Inbound, true)
	c.Inbound = consume(c.Inbound, consumed)

	for i := range frames {
		s.framesIn.Add(1)
		if !s.handleFrame(c, &frames[i]) {
			return
		}
	}

	if decodeErr != nil {
		code := protocol.CloseProtocolError
		if errors.Is(decodeErr, protocol.ErrFrameTooLarge) {
			code = protocol.CloseMessageTooBig
		}
		s.logError(decodeErr, c.ID, api.PhaseDecode, "frame decode failed")
		s.disconnect(c, code, decodeErr.Error())
	}
}

// handleFrame processes one frame. It returns false when the connection is
// closing and the remaining frames must be dropped.
func (s *Server) handleFrame(c *session.Client, f *protocol.Frame) bool {
	switch f.Opcode {
	case protocol.OpcodePing:
		if pong, err := protocol.EncodePong(f.Payload); err == nil {
			s.framesOut.Add(1)
			s.send(c, pong)
		}
		return true

	case protocol.OpcodePong:
		// Liveness already recorded by Touch on read.
		return true

	case protocol.OpcodeClose:
		c.CloseReceived = true
		if !c.CloseSent {
			if reply, err := protocol.EncodeClose(f.CloseCode(), ""); err == nil {
				c.EnqueueWrite(reply, 0)
				s.framesOut.Add(1)
			}
			c.CloseSent = true
		}
		c.CloseWhenDrained = true
		s.flushClient(c)
		return false

	default:
		opcode, payload, done, err := c.Assembler.Push(f)
		if err != nil {
			code := protocol.CloseProtocolError
			if errors.Is(err, protocol.ErrMessageTooLarge) {
				code = protocol.CloseMessageTooBig
			}
			s.logError(err, c.ID, api.PhaseDecode, "fragmentation violation")
			s.disconnect(c, code, err.Error())
			return false
		}
		if done && opcode == protocol.OpcodeText {
			s.dispatchMessage(c, payload)
		}
		// Binary messages carry no application framing and are dropped.
		return true
	}
}

// dispatchMessage parses the {event,data} envelope and routes it. A frame
// missing either key, or naming an unknown event, is dropped silently per
// the wire contract.
func (s *Server) dispatchMessage(c *session.Client, payload []byte) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return
	}
	rawEvent, hasEvent := envelope["event"]
	rawData, hasData := envelope["data"]
	if !hasEvent || !hasData {
		return
	}
	var event string
	if err := json.Unmarshal(rawEvent, &event); err != nil || event == "" {
		return
	}
	var data any
	if err := json.Unmarshal(rawData, &data); err != nil {
		return
	}

	route, ok := s.table.ResolveEvent(event)
	if !ok {
		s.log.Debug().
			Str("component", "loop").
			Int("client_id", int(c.ID)).
			Str("event", event).
			Msg("unknown event dropped")
		return
	}

	if d := s.limiter.CheckEvent(c.RemoteIP, event, route.RateLimit); !d.Allowed {
		s.denials.Add(1)
		msg := ratelimit.EventMessage(d)
		s.Emit(c.ID, msg.Event, msg.Data)
		return
	}

	if err := s.runMessageChain(c.ID, event, data, route); err != nil {
		s.logError(err, c.ID, api.PhaseDispatch, "event handler failed")
	}
}

// runMessageChain executes the message pipeline with a panic boundary.
// Errors drop the event; the client stays connected.
func (s *Server) runMessageChain(id api.ClientID, event string, data any, route *routing.SocketRoute) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.Errorf(api.ClassHandler, "event handler panic: %v", r)
		}
	}()
	return s.stack.RunMessage(id, event, data, s, route.Middlewares, route.ExcludeGlobal, func() error {
		return route.Handler(s, id, data)
	})
}

// consume drops n parsed bytes from the front of buf, copying the residue
// down so the backing array never grows unbounded.
func consume(buf []byte, n int) []byte {
	if n <= 0 {
		return buf
	}
	if n >= len(buf) {
		return buf[:0]
	}
	remaining := copy(buf, buf[n:])
	return buf[:remaining]
}
