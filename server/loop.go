// File: server/loop.go
// Package server the single-threaded cooperative event loop: readiness
// wait, accept, per-client reads and drains, outbound flushing, and
// housekeeping. Every per-client step runs inside an error boundary so one
// broken connection never takes down the loop.
// License: Apache-2.0

package server

import (
	"fmt"
	"net"
	"time"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/membership"
	"github.com/sockeon/sockeon-go/protocol"
	"github.com/sockeon/sockeon-go/reactor"
	"github.com/sockeon/sockeon-go/session"
	"github.com/sockeon/sockeon-go/transport"
)

// pingInterval paces idle probes once a connection crosses the idle
// threshold.
const pingInterval = 5 * time.Second

// acceptBackoff delays the accept loop after a listener error.
const acceptBackoff = 100 * time.Millisecond

// Run binds the listener and blocks driving the event loop until Shutdown.
// Bind and poller failures surface immediately; loop-level errors are
// contained per client.
func (s *Server) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return api.ErrAlreadyRunning
	}
	defer close(s.loopDone)

	lfd, err := transport.Listen(s.cfg.Addr())
	if err != nil {
		return api.WrapError(api.ClassFatal, err, "cannot bind "+s.cfg.Addr())
	}
	s.listenFD = lfd

	poller, err := reactor.NewPoller()
	if err != nil {
		transport.Close(lfd)
		return api.WrapError(api.ClassFatal, err, "cannot create poller")
	}
	s.poller = poller
	if err := poller.Add(lfd); err != nil {
		poller.Close()
		transport.Close(lfd)
		return api.WrapError(api.ClassFatal, err, "cannot watch listener")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("component", "loop").
		Str("addr", s.cfg.Addr()).
		Msg("server listening")

	events := make([]reactor.Event, 256)
	readBuf := make([]byte, s.cfg.ReadChunkSize)

	for {
		select {
		case <-s.quit:
			s.drainAndClose()
			return nil
		default:
		}

		n, err := poller.Wait(events, s.cfg.TickInterval)
		if err != nil {
			s.log.Error().Str("component", "loop").Err(err).Msg("readiness wait failed")
			time.Sleep(acceptBackoff)
			continue
		}
		now := time.Now()

		for i := 0; i < n; i++ {
			ev := events[i]
			if ev.FD == s.listenFD {
				s.acceptReady(now)
				continue
			}
			c, ok := s.registry.Get(api.ClientID(ev.FD))
			if !ok {
				// Stale readiness for a descriptor closed this tick.
				poller.Remove(ev.FD)
				continue
			}
			if ev.Closed {
				s.destroyClient(c)
				continue
			}
			if ev.Readable {
				s.readClient(c, readBuf, now)
			}
			if ev.Writable {
				if live, ok := s.registry.Get(c.ID); ok {
					s.flushClient(live)
				}
			}
		}

		s.housekeeping(now)
	}
}

// Shutdown stops the loop cooperatively: open WebSocket clients get a
// going-away close frame, buffers flush, sockets close, then Run returns.
func (s *Server) Shutdown() error {
	if !s.running.Load() {
		return api.ErrServerClosed
	}
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.loopDone
	return nil
}

// acceptReady drains the accept backlog, bounded by the flood guard.
func (s *Server) acceptReady(now time.Time) {
	for {
		if !s.acceptGuard.Allow() {
			// Over the accept budget: leave the backlog for the next tick.
			return
		}
		fd, remoteAddr, err := transport.Accept(s.listenFD)
		if err != nil {
			if err == transport.ErrWouldBlock {
				return
			}
			s.logError(err, 0, api.PhaseAccept, "accept failed")
			time.Sleep(acceptBackoff)
			return
		}

		ip := remoteAddr
		if host, _, splitErr := net.SplitHostPort(remoteAddr); splitErr == nil {
			ip = host
		}
		c := session.NewClient(fd, remoteAddr, ip, now)
		s.registry.Add(c)
		s.members.JoinNamespace(c.ID, membership.DefaultNamespace)

		if err := s.poller.Add(fd); err != nil {
			s.logError(err, c.ID, api.PhaseAccept, "cannot watch client")
			s.destroyClient(c)
			continue
		}
		s.log.Debug().
			Str("component", "loop").
			Int("client_id", int(c.ID)).
			Str("remote", remoteAddr).
			Msg("connection accepted")
	}
}

// readClient pulls one chunk off the socket and drains the client's buffer
// inside the error boundary.
func (s *Server) readClient(c *session.Client, readBuf []byte, now time.Time) {
	n, err := transport.Read(c.FD, readBuf)
	switch err {
	case nil:
	case transport.ErrWouldBlock:
		return
	case transport.ErrClosedByPeer:
		s.destroyClient(c)
		return
	default:
		s.logError(err, c.ID, api.PhaseDecode, "read failed")
		s.destroyClient(c)
		return
	}

	c.Inbound = append(c.Inbound, readBuf[:n]...)
	s.bytesIn.Add(int64(n))
	c.Touch(now)
	s.drainClient(c, now)
}

// drainClient applies the per-type drain rules. A panic anywhere below
// disconnects this client only.
func (s *Server) drainClient(c *session.Client, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logError(fmt.Errorf("panic: %v", r), c.ID, api.PhaseDispatch, "drain panic")
			s.destroyClient(c)
		}
	}()

	if c.Type == api.ClientUnknown {
		detected, decided := detectProtocol(c.Inbound)
		if !decided {
			return
		}
		c.Type = detected
		s.log.Debug().
			Str("component", "loop").
			Int("client_id", int(c.ID)).
			Str("type", detected.String()).
			Msg("protocol detected")
	}

	switch c.Type {
	case api.ClientWS:
		s.drainWS(c)
	case api.ClientHTTP:
		s.drainHTTP(c)
	}
}

// send queues an encoded buffer and flushes what the socket will take.
// Overflowing the high-water mark disconnects the client.
func (s *Server) send(c *session.Client, buf []byte) error {
	if err := c.EnqueueWrite(buf, s.cfg.WriteHighWater); err != nil {
		s.disconnect(c, protocol.CloseTryAgainLater, "write backlog exceeded")
		return err
	}
	s.flushClient(c)
	return nil
}

// flushClient writes buffered chunks until the socket blocks or the backlog
// empties, managing write interest and deferred closes.
func (s *Server) flushClient(c *session.Client) {
	if c.FD < 0 {
		// Detached clients exist only in tests; honour deferred close.
		if c.CloseWhenDrained && !c.HasBuffered() {
			s.destroyClient(c)
		}
		return
	}
	for {
		chunk, ok := c.NextWrite()
		if !ok {
			break
		}
		n, err := transport.Write(c.FD, chunk)
		if n > 0 {
			c.ConsumeWrite(n)
			s.bytesOut.Add(int64(n))
		}
		if err == transport.ErrWouldBlock {
			if s.poller != nil {
				s.poller.SetWriteInterest(c.FD, true)
			}
			return
		}
		if err != nil {
			s.logError(err, c.ID, api.PhaseBroadcast, "write failed")
			s.destroyClient(c)
			return
		}
	}
	if s.poller != nil {
		s.poller.SetWriteInterest(c.FD, false)
	}
	if c.CloseWhenDrained {
		s.destroyClient(c)
	}
}

// disconnect begins an orderly close: established WebSocket clients get a
// close frame first, everyone else closes as soon as their backlog flushes.
func (s *Server) disconnect(c *session.Client, closeCode int, reason string) {
	if c.Type == api.ClientWS && c.HandshakeDone && !c.CloseSent {
		if frame, err := protocol.EncodeClose(closeCode, reason); err == nil {
			c.EnqueueWrite(frame, 0)
			s.framesOut.Add(1)
		}
		c.CloseSent = true
	}
	c.CloseWhenDrained = true
	s.flushClient(c)
}

// destroyClient tears the connection down: disconnect listeners fire while
// membership is still intact, then every reference is removed. Idempotent.
func (s *Server) destroyClient(c *session.Client) {
	if !s.registry.Remove(c.ID) {
		return
	}
	if c.Type == api.ClientWS && c.HandshakeDone {
		for _, fn := range s.table.DisconnectListeners() {
			s.runListener(fn, c.ID)
		}
	}
	s.members.Remove(c.ID)
	if c.FD >= 0 {
		if s.poller != nil {
			s.poller.Remove(c.FD)
		}
		transport.Close(c.FD)
	}
	s.log.Debug().
		Str("component", "loop").
		Int("client_id", int(c.ID)).
		Msg("connection closed")
}

// runListener invokes a connection listener inside its own boundary.
func (s *Server) runListener(fn func(api.ServerHandle, api.ClientID), id api.ClientID) {
	defer func() {
		if r := recover(); r != nil {
			s.logError(fmt.Errorf("panic: %v", r), id, api.PhaseDispatch, "listener panic")
		}
	}()
	fn(s, id)
}

// housekeeping runs once per tick: limiter sweep, queue drain, and the
// timeout ladder.
func (s *Server) housekeeping(now time.Time) {
	s.limiter.Sweep(now)
	s.queueTick()

	for _, id := range s.registry.IDs() {
		c, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		switch {
		case c.Type == api.ClientUnknown, c.Type == api.ClientWS && !c.HandshakeDone:
			if now.Sub(c.ConnectedAt) > s.cfg.HandshakeTimeout {
				s.log.Debug().Str("component", "loop").Int("client_id", int(id)).Msg("handshake timeout")
				s.destroyClient(c)
			}
		case c.Type == api.ClientHTTP:
			if c.IdleFor(now) > s.cfg.HTTPBufferTimeout {
				s.destroyClient(c)
			}
		case c.Type == api.ClientWS:
			s.checkIdle(c, now)
		}
	}
}

// checkIdle probes silent WebSocket clients and closes unresponsive ones.
func (s *Server) checkIdle(c *session.Client, now time.Time) {
	if c.IdleFor(now) < s.cfg.IdleTimeout {
		return
	}
	if c.PingsOutstanding() >= s.cfg.MaxUnansweredPings {
		s.log.Debug().Str("component", "loop").Int("client_id", int(c.ID)).Msg("idle timeout")
		s.disconnect(c, protocol.CloseGoingAway, "idle timeout")
		return
	}
	if !c.LastPing.IsZero() && now.Sub(c.LastPing) < pingInterval {
		return
	}
	if frame, err := protocol.EncodePing(nil); err == nil {
		c.LastPing = now
		c.PingSent()
		s.framesOut.Add(1)
		s.send(c, frame)
	}
}

// queueTick applies externally queued broadcasts.
func (s *Server) queueTick() {
	if s.queueReader == nil {
		return
	}
	records, skipped, err := s.queueReader.Drain()
	if err != nil {
		s.log.Error().Str("component", "queue").Err(err).Msg("queue drain failed")
		return
	}
	if skipped > 0 {
		s.log.Warn().Str("component", "queue").Int("skipped", skipped).Msg("malformed queue records skipped")
	}
	for _, rec := range records {
		if err := s.Broadcast(rec.Event, rec.Data, rec.Namespace, rec.Room); err != nil {
			s.log.Error().Str("component", "queue").Err(err).Str("event", rec.Event).Msg("queued broadcast failed")
		}
	}
}

// drainAndClose performs the shutdown sequence on the loop goroutine.
func (s *Server) drainAndClose() {
	s.log.Info().Str("component", "loop").Msg("shutting down")

	if s.listenFD >= 0 {
		s.poller.Remove(s.listenFD)
		transport.Close(s.listenFD)
		s.listenFD = -1
	}

	for _, id := range s.registry.IDs() {
		c, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		if c.Type == api.ClientWS && c.HandshakeDone {
			s.disconnect(c, protocol.CloseGoingAway, "server shutting down")
		} else {
			s.destroyClient(c)
		}
	}

	// One bounded flush pass for close frames still in flight.
	deadline := time.Now().Add(time.Second)
	for s.registry.Len() > 0 && time.Now().Before(deadline) {
		for _, id := range s.registry.IDs() {
			if c, ok := s.registry.Get(id); ok {
				s.flushClient(c)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, id := range s.registry.IDs() {
		if c, ok := s.registry.Get(id); ok {
			s.destroyClient(c)
		}
	}

	s.poller.Close()
	s.poller = nil
}
