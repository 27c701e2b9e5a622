// File: middleware/builtin.go
// Package middleware built-in HTTP middlewares: request IDs, access logging,
// panic recovery.
// License: Apache-2.0

package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/httpx"
)

// Names under which the server registers the built-ins, usable in a route's
// ExcludeGlobal list.
const (
	NameRequestID = "request_id"
	NameAccessLog = "access_log"
	NameRecover   = "recover"
)

// BagRequestID is the request-bag key carrying the request ID.
const BagRequestID = "request_id"

// RequestID assigns each request a UUID, exposes it to downstream handlers
// through the request bag, and stamps it on the response.
func RequestID() HTTPMiddleware {
	return func(req *httpx.Request, next HTTPNext, h api.ServerHandle) *httpx.Response {
		id := uuid.NewString()
		req.Bag[BagRequestID] = id
		resp := next()
		if resp != nil {
			resp.SetHeader("X-Request-ID", id)
		}
		return resp
	}
}

// AccessLog writes one structured line per request with method, path,
// status, duration, and client address.
func AccessLog() HTTPMiddleware {
	return func(req *httpx.Request, next HTTPNext, h api.ServerHandle) *httpx.Response {
		start := time.Now()
		resp := next()

		status := http.StatusInternalServerError
		if resp != nil {
			status = resp.Status
		}
		ev := h.Logger().Info().
			Str("component", "http").
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote_ip", req.RemoteIP)
		if id, ok := req.Bag[BagRequestID].(string); ok {
			ev = ev.Str("request_id", id)
		}
		ev.Msg("request")
		return resp
	}
}

// Recover converts a panic anywhere downstream into a logged 500 so one bad
// handler cannot take the loop down.
func Recover() HTTPMiddleware {
	return func(req *httpx.Request, next HTTPNext, h api.ServerHandle) (resp *httpx.Response) {
		defer func() {
			if r := recover(); r != nil {
				h.Logger().Error().
					Str("component", "http").
					Str("method", req.Method).
					Str("path", req.Path).
					Interface("panic", r).
					Msg("handler panic")
				resp = httpx.Error(http.StatusInternalServerError, "internal server error")
			}
		}()
		return next()
	}
}
