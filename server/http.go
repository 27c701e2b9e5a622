// File: server/http.go
// Package server HTTP drain rules: accumulate one complete request,
// dispatch it through the middleware pipeline, write the response, and
// close or keep alive per the Connection header.
// License: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sockeon/sockeon-go/httpx"
	"github.com/sockeon/sockeon-go/ratelimit"
	"github.com/sockeon/sockeon-go/session"
)

// drainHTTP processes as many complete pipelined requests as the buffer
// holds. Connections default to close after one response; keep-alive is
// honoured when the client asks for it.
func (s *Server) drainHTTP(c *session.Client) {
	for {
		if _, complete := httpx.RequestComplete(c.Inbound); !complete {
			return
		}

		req, consumed, err := httpx.ParseRequest(c.Inbound, s.cfg.MaxRequestBody)
		if err != nil {
			s.writeResponse(c, parseErrorResponse(err), false)
			return
		}
		c.Inbound = consume(c.Inbound, consumed)

		req.Client = c.ID
		req.RemoteIP = c.RemoteIP
		if ip := s.proxyIP(req.Headers); ip != "" {
			req.RemoteIP = ip
			c.RemoteIP = ip
		}
		s.httpCount.Add(1)

		resp := s.dispatchHTTP(req)
		keep := req.WantsKeepAlive()
		c.KeepAlive = keep
		s.writeResponse(c, resp, keep)

		if !keep {
			return
		}
		if _, ok := s.registry.Get(c.ID); !ok {
			// writeResponse may have torn the connection down.
			return
		}
		if len(c.Inbound) == 0 {
			return
		}
	}
}

// parseErrorResponse maps request parse failures to their statuses.
func parseErrorResponse(err error) *httpx.Response {
	switch {
	case errors.Is(err, httpx.ErrChunkedBody):
		return httpx.Error(http.StatusLengthRequired, "chunked transfer encoding not supported")
	case errors.Is(err, httpx.ErrBodyTooLarge):
		return httpx.Error(http.StatusRequestEntityTooLarge, "request body too large")
	default:
		return httpx.Error(http.StatusBadRequest, "malformed request")
	}
}

// dispatchHTTP resolves and runs one request: CORS preflight first, then
// the rate limiter, then the route's middleware chain and handler.
func (s *Server) dispatchHTTP(req *httpx.Request) *httpx.Response {
	if req.Method == http.MethodOptions {
		return s.cfg.CORS.Preflight(req)
	}

	route, params, found := s.table.ResolveHTTP(req.Method, req.Path)
	var limit *ratelimit.Limit
	limitPath := req.Path
	if found {
		limit = route.RateLimit
		// The route scope keys on the registered pattern so every concrete
		// path of a {param} route shares one window.
		limitPath = route.Path
	}

	var resp *httpx.Response
	if d := s.limiter.CheckHTTP(req.RemoteIP, req.Method, limitPath, limit); !d.Allowed {
		s.denials.Add(1)
		resp = ratelimit.HTTPResponse(d)
	} else if !found {
		resp = httpx.Error(http.StatusNotFound, "not found")
	} else {
		if params != nil {
			req.Params = params
		}
		resp = s.stack.RunHTTP(req, s, route.Middlewares, route.ExcludeGlobal, func() *httpx.Response {
			return route.Handler(s, req)
		})
		if resp == nil {
			resp = httpx.Error(http.StatusInternalServerError, "internal server error")
		}
	}

	s.cfg.CORS.Apply(req.Header("Origin"), resp)
	return resp
}

// writeResponse serialises and queues one response; non-keep-alive
// connections close once it flushes.
func (s *Server) writeResponse(c *session.Client, resp *httpx.Response, keepAlive bool) {
	resp.KeepAlive = keepAlive
	if !keepAlive {
		c.CloseWhenDrained = true
	}
	s.send(c, resp.Bytes())
}

// proxyIP resolves the effective client IP from trusted proxy headers,
// taking the first hop of a comma-separated chain.
func (s *Server) proxyIP(h http.Header) string {
	if !s.cfg.TrustProxy {
		return ""
	}
	for _, name := range s.cfg.ProxyHeaders {
		v := h.Get(name)
		if v == "" {
			continue
		}
		if first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0]); first != "" {
			return first
		}
	}
	return ""
}
