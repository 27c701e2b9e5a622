// File: httpx/response.go
// Package httpx response construction and wire serialisation.
// License: Apache-2.0

package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
)

// Headers stamped on every response unless the handler overrides them.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "SAMEORIGIN",
	"X-XSS-Protection":       "1; mode=block",
}

// Response is the unit handlers and middlewares produce. It is serialised to
// the wire exactly once per request by the dispatcher.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte

	// KeepAlive selects the Connection header; the dispatcher sets it from
	// the request before writing.
	KeepAlive bool
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: http.Header{}}
}

// Text returns a text/plain response.
func Text(status int, body string) *Response {
	r := NewResponse(status)
	r.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(body)
	return r
}

// JSON returns an application/json response. Marshal failures degrade to a
// 500 so a handler bug never kills the connection.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(http.StatusInternalServerError, "response serialization failed")
	}
	r := NewResponse(status)
	r.Headers.Set("Content-Type", "application/json")
	r.Body = body
	return r
}

// Error returns the canonical JSON error envelope used by all built-in
// failure paths.
func Error(status int, message string) *Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	r := NewResponse(status)
	r.Headers.Set("Content-Type", "application/json")
	r.Body = body
	return r
}

// NoContent returns a bodyless response, used for preflight answers.
func NoContent(status int) *Response { return NewResponse(status) }

// Redirect returns a Location response.
func Redirect(status int, location string) *Response {
	r := NewResponse(status)
	r.Headers.Set("Location", location)
	return r
}

// SetHeader sets a header and returns the response for chaining.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}
	r.Headers.Set(key, value)
	return r
}

// Bytes serialises the response into a single write-ready buffer: status
// line, canonical headers, security headers, handler headers, CRLF, body.
func (r *Response) Bytes() []byte {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	reason := http.StatusText(status)
	if reason == "" {
		reason = "Status"
	}

	var buf []byte
	buf = append(buf, fmt.Sprintf("HTTP/1.1 %d %s\r\n", status, reason)...)

	conn := "close"
	if r.KeepAlive {
		conn = "keep-alive"
	}
	buf = appendHeader(buf, "Connection", conn)
	buf = appendHeader(buf, "Content-Length", strconv.Itoa(len(r.Body)))
	if len(r.Body) > 0 && r.Headers.Get("Content-Type") == "" {
		buf = appendHeader(buf, "Content-Type", "application/json")
	}
	for k, v := range securityHeaders {
		if r.Headers.Get(k) == "" {
			buf = appendHeader(buf, k, v)
		}
	}

	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "Connection" || k == "Content-Length" {
			// Canonical values already written above.
			continue
		}
		for _, v := range r.Headers[k] {
			buf = appendHeader(buf, k, v)
		}
	}

	buf = append(buf, '\r', '\n')
	buf = append(buf, r.Body...)
	return buf
}

func appendHeader(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ':', ' ')
	buf = append(buf, value...)
	buf = append(buf, '\r', '\n')
	return buf
}
