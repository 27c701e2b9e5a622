// File: httpx/cors.go
// Package httpx CORS policy evaluation for plain HTTP requests and
// WebSocket handshakes.
// License: Apache-2.0

package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy shared by the HTTP dispatcher and
// the handshake validator.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows every origin with the common method and header
// sets. Credentials stay off because they are incompatible with the
// wildcard origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         86400,
	}
}

// OriginAllowed reports whether origin passes the policy. An empty origin
// (same-origin or non-browser client) always passes.
func (c CORSConfig) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Wildcard reports whether the policy is the open one.
func (c CORSConfig) Wildcard() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// allowOriginValue picks the Access-Control-Allow-Origin value for a request
// origin. Credentialed policies must echo the concrete origin.
func (c CORSConfig) allowOriginValue(origin string) string {
	if c.Wildcard() && !c.AllowCredentials {
		return "*"
	}
	return origin
}

// Preflight answers an OPTIONS request. The dispatcher short-circuits the
// route table when this returns non-nil.
func (c CORSConfig) Preflight(r *Request) *Response {
	origin := r.Header("Origin")
	if !c.OriginAllowed(origin) {
		return Error(http.StatusForbidden, "origin not allowed")
	}
	resp := NoContent(http.StatusNoContent)
	if origin != "" {
		resp.Headers.Set("Access-Control-Allow-Origin", c.allowOriginValue(origin))
	}
	resp.Headers.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	resp.Headers.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	if c.AllowCredentials {
		resp.Headers.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.MaxAge > 0 {
		resp.Headers.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
	return resp
}

// Apply stamps the simple-request CORS headers onto a response produced by
// a route handler.
func (c CORSConfig) Apply(origin string, resp *Response) {
	if origin == "" || !c.OriginAllowed(origin) {
		return
	}
	if resp.Headers == nil {
		resp.Headers = http.Header{}
	}
	resp.Headers.Set("Access-Control-Allow-Origin", c.allowOriginValue(origin))
	if c.AllowCredentials {
		resp.Headers.Set("Access-Control-Allow-Credentials", "true")
	}
}
