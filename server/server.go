// File: server/server.go
// Package server wires the runtime together and owns the single-threaded
// event loop: accept, protocol sniffing, drains, dispatch, broadcast, and
// housekeeping. The server is the sole owner of router, membership store,
// and client registry; handlers talk back through the api.ServerHandle it
// implements.
// License: Apache-2.0

package server

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/auth"
	"github.com/sockeon/sockeon-go/config"
	"github.com/sockeon/sockeon-go/membership"
	"github.com/sockeon/sockeon-go/middleware"
	"github.com/sockeon/sockeon-go/queue"
	"github.com/sockeon/sockeon-go/ratelimit"
	"github.com/sockeon/sockeon-go/reactor"
	"github.com/sockeon/sockeon-go/routing"
	"github.com/sockeon/sockeon-go/session"
)

// Server is the combined WebSocket + HTTP application server.
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	table    *routing.Table
	stack    *middleware.Stack
	members  *membership.Store
	registry *session.Registry
	limiter  *ratelimit.Limiter
	issuer   *auth.TokenIssuer

	poller      reactor.Poller
	listenFD    int
	acceptGuard *rate.Limiter
	queueReader *queue.Reader

	running  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	loopDone chan struct{}

	startedAt time.Time

	framesIn   atomic.Int64
	framesOut  atomic.Int64
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	broadcasts atomic.Int64
	denials    atomic.Int64
	httpCount  atomic.Int64
}

// New builds a server from the defaults, SOCKEON_* environment overrides,
// and the given options, in that order.
func New(opts ...Option) (*Server, error) {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		table:    routing.NewTable(),
		stack:    middleware.NewStack(),
		members:  membership.NewStore(),
		registry: session.NewRegistry(),
		listenFD: -1,
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	s.log = zerolog.New(os.Stderr).With().Timestamp().Logger()

	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	level := zerolog.InfoLevel
	if s.cfg.Debug {
		level = zerolog.DebugLevel
	}
	s.log = s.log.Level(level)

	s.limiter = ratelimit.New(s.cfg.RateLimit)
	s.acceptGuard = rate.NewLimiter(rate.Limit(s.cfg.AcceptRate), s.cfg.AcceptBurst)
	if s.cfg.QueueFile != "" {
		s.queueReader = queue.NewReader(s.cfg.QueueFile)
	}
	if s.cfg.AuthKey != "" {
		s.issuer = auth.NewTokenIssuer(s.cfg.AuthKey, s.cfg.BroadcastSalt, s.cfg.TokenExpiration)
		s.stack.UseHandshake("auth", auth.HandshakeMiddleware(s.issuer))
	}

	s.stack.UseHTTP(middleware.NameRecover, middleware.Recover())
	s.stack.UseHTTP(middleware.NameRequestID, middleware.RequestID())
	s.stack.UseHTTP(middleware.NameAccessLog, middleware.AccessLog())
	return s, nil
}

// Config exposes the effective configuration.
func (s *Server) Config() *config.Config { return s.cfg }

// TokenIssuer returns the connection-token issuer, or nil when auth is off.
func (s *Server) TokenIssuer() *auth.TokenIssuer { return s.issuer }

// Register scans a controller's route descriptors into the table.
func (s *Server) Register(controller any) error {
	return routing.Register(s.table, controller)
}

// OnEvent registers a single WebSocket event route.
func (s *Server) OnEvent(r routing.SocketRoute) error { return s.table.OnEvent(r) }

// Handle registers a single HTTP route.
func (s *Server) Handle(r routing.HTTPRoute) error { return s.table.Handle(r) }

// OnConnect adds a connection listener.
func (s *Server) OnConnect(fn routing.ConnectFunc) { s.table.OnConnect(fn) }

// OnDisconnect adds a pre-close listener.
func (s *Server) OnDisconnect(fn routing.ConnectFunc) { s.table.OnDisconnect(fn) }

// UseHTTP adds a named global HTTP middleware.
func (s *Server) UseHTTP(name string, fn middleware.HTTPMiddleware) {
	s.stack.UseHTTP(name, fn)
}

// UseMessage adds a named global WebSocket-message middleware.
func (s *Server) UseMessage(name string, fn middleware.MessageMiddleware) {
	s.stack.UseMessage(name, fn)
}

// UseHandshake adds a named global handshake middleware.
func (s *Server) UseHandshake(name string, fn middleware.HandshakeMiddleware) {
	s.stack.UseHandshake(name, fn)
}

// Logger returns the server logger.
func (s *Server) Logger() *zerolog.Logger { return &s.log }

// Stats snapshots the runtime counters.
func (s *Server) Stats() api.Stats {
	ws, http, _ := s.registry.CountByType()
	namespaces, rooms := s.members.Counts()
	return api.Stats{
		StartedAt:        s.startedAt,
		ClientsTotal:     s.registry.Len(),
		ClientsWS:        ws,
		ClientsHTTP:      http,
		Namespaces:       namespaces,
		Rooms:            rooms,
		FramesReceived:   s.framesIn.Load(),
		FramesSent:       s.framesOut.Load(),
		BytesReceived:    s.bytesIn.Load(),
		BytesSent:        s.bytesOut.Load(),
		Broadcasts:       s.broadcasts.Load(),
		RateLimitDenials: s.denials.Load(),
		HTTPRequests:     s.httpCount.Load(),
	}
}

// logError reports an error with the standard context bag.
func (s *Server) logError(err error, id api.ClientID, phase api.Phase, msg string) {
	s.log.Error().
		Err(err).
		Int("client_id", int(id)).
		Str("phase", string(phase)).
		Msg(msg)
}

var _ api.ServerHandle = (*Server)(nil)
