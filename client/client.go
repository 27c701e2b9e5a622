// File: client/client.go
// Package client implements the outbound WebSocket client speaking the
// {event,data} application framing. It dials the server's upgrade endpoint,
// attaches the optional connection token, and dispatches inbound events to
// registered handlers from a single read goroutine.
// License: Apache-2.0

package client

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sockeon/sockeon-go/api"
)

// Handler receives the decoded data of one inbound event.
type Handler func(data any)

// Client is one outbound connection. Emit is safe from any goroutine;
// handlers run on the read goroutine and must not block it.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

type dialConfig struct {
	token            string
	headers          http.Header
	handshakeTimeout time.Duration
	log              zerolog.Logger
}

// Option customises a Dial.
type Option func(*dialConfig)

// WithToken attaches a connection token as the `token` query parameter.
func WithToken(token string) Option {
	return func(c *dialConfig) { c.token = token }
}

// WithHeader adds a header to the upgrade request.
func WithHeader(key, value string) Option {
	return func(c *dialConfig) { c.headers.Set(key, value) }
}

// WithHandshakeTimeout bounds the dial and upgrade.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *dialConfig) { c.handshakeTimeout = d }
}

// WithLogger replaces the default stderr logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *dialConfig) { c.log = log }
}

// Dial connects to a ws:// or wss:// URL and starts the read loop. Pings
// from the server are answered automatically by the transport.
func Dial(rawURL string, opts ...Option) (*Client, error) {
	cfg := dialConfig{
		headers:          http.Header{},
		handshakeTimeout: 10 * time.Second,
		log:              zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, api.WrapError(api.ClassValidation, err, "invalid server url")
	}
	if cfg.token != "" {
		q := u.Query()
		q.Set("token", cfg.token)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.handshakeTimeout}
	conn, resp, err := dialer.Dial(u.String(), cfg.headers)
	if err != nil {
		if resp != nil {
			return nil, api.Errorf(api.ClassProtocol, "upgrade rejected: %s", resp.Status)
		}
		return nil, api.WrapError(api.ClassProtocol, err, "dial failed")
	}

	c := &Client{
		conn:     conn,
		log:      cfg.log,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// On registers the handler for an event, replacing any previous one.
func (c *Client) On(event string, fn Handler) {
	c.handlersMu.Lock()
	c.handlers[event] = fn
	c.handlersMu.Unlock()
}

// Emit sends one {event,data} message.
func (c *Client) Emit(event string, data any) error {
	payload, err := json.Marshal(api.Message{Event: event, Data: data})
	if err != nil {
		return api.WrapError(api.ClassHandler, err, "cannot encode message")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return api.ErrServerClosed
	default:
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return api.WrapError(api.ClassProtocol, err, "write failed")
	}
	return nil
}

// Close sends a going-away close frame and tears the connection down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		deadline := time.Now().Add(time.Second)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		c.writeMu.Unlock()
		c.conn.Close()
	})
	return nil
}

// Done closes when the connection ends, by Close or by the peer.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the read loop stopped, nil on a clean close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// readLoop decodes inbound text messages and dispatches them. Messages that
// are not a valid {event,data} envelope are dropped, matching the server's
// treatment of inbound frames.
func (c *Client) readLoop() {
	defer c.Close()
	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.setErr(err)
				}
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg api.Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Event == "" {
			c.log.Debug().Str("component", "client").Msg("malformed message dropped")
			continue
		}
		c.handlersMu.RLock()
		fn := c.handlers[msg.Event]
		c.handlersMu.RUnlock()
		if fn != nil {
			c.dispatch(msg.Event, fn, msg.Data)
		}
	}
}

// dispatch runs one handler inside a panic boundary so a handler bug cannot
// kill the read loop.
func (c *Client) dispatch(event string, fn Handler, data any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("component", "client").
				Str("event", event).
				Interface("panic", r).
				Msg("handler panic")
		}
	}()
	fn(data)
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}
