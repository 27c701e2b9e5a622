// File: httpx/request.go
// Package httpx implements the HTTP/1.1 side of the runtime: incremental
// request buffering, parsing, response construction, and CORS handling.
// License: Apache-2.0
//
// The parser works over a raw inbound buffer owned by the event loop: the
// loop accumulates bytes until RequestComplete reports a full request, then
// ParseRequest consumes exactly one request and leaves any pipelined bytes
// in place.

package httpx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sockeon/sockeon-go/api"
)

var headerTerminator = []byte("\r\n\r\n")

// Parse errors mapped to response statuses by the dispatcher.
var (
	ErrMalformedRequest = errors.New("malformed http request")
	ErrChunkedBody      = errors.New("chunked transfer encoding not supported") // answered with 411
	ErrBodyTooLarge     = errors.New("request body exceeds configured limit")   // answered with 413
)

// Request is one parsed HTTP request plus the dispatch context attached to it.
type Request struct {
	Method  string
	Path    string
	Proto   string
	Query   url.Values
	Headers http.Header
	Body    []byte

	// JSON holds the decoded body for application/json requests.
	JSON any
	// Form holds the decoded body for application/x-www-form-urlencoded requests.
	Form url.Values

	// Params holds captures from {name} route segments.
	Params map[string]string

	// Client identifies the connection the request arrived on.
	Client api.ClientID
	// RemoteIP is the effective client IP after proxy-header resolution.
	RemoteIP string

	// Bag carries per-request values between middlewares (request id etc.).
	Bag map[string]any
}

// Param returns a route parameter capture.
func (r *Request) Param(name string) string { return r.Params[name] }

// QueryParam returns the first value of a query parameter.
func (r *Request) QueryParam(name string) string { return r.Query.Get(name) }

// Header returns a header value by case-insensitive name.
func (r *Request) Header(name string) string { return r.Headers.Get(name) }

// ContentType returns the media type without parameters.
func (r *Request) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mt
}

// WantsKeepAlive reports whether the client asked to keep the connection
// open. Connections default to close after one response.
func (r *Request) WantsKeepAlive() bool {
	return strings.EqualFold(strings.TrimSpace(r.Headers.Get("Connection")), "keep-alive")
}

// RequestComplete inspects buf for one full request: a terminated header
// block plus, when Content-Length is positive, that many body bytes.
// It returns the total request length when complete.
func RequestComplete(buf []byte) (int, bool) {
	end := bytes.Index(buf, headerTerminator)
	if end < 0 {
		return 0, false
	}
	headLen := end + len(headerTerminator)
	cl := scanContentLength(buf[:headLen])
	if cl <= 0 {
		return headLen, true
	}
	if len(buf) >= headLen+cl {
		return headLen + cl, true
	}
	return 0, false
}

// scanContentLength extracts Content-Length from a raw header block without
// a full parse; malformed values read as 0 and are caught by ParseRequest.
func scanContentLength(head []byte) int {
	for _, line := range bytes.Split(head, []byte("\r\n")) {
		sep := bytes.IndexByte(line, ':')
		if sep < 0 {
			continue
		}
		if !strings.EqualFold(string(bytes.TrimSpace(line[:sep])), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(line[sep+1:])))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}

// ParseRequest parses exactly one complete request from the front of buf and
// returns it with the number of bytes consumed. The caller must have seen
// RequestComplete return true. maxBody bounds acceptable Content-Length;
// zero means no limit.
func ParseRequest(buf []byte, maxBody int) (*Request, int, error) {
	total, ok := RequestComplete(buf)
	if !ok {
		return nil, 0, ErrMalformedRequest
	}

	end := bytes.Index(buf, headerTerminator)
	head := buf[:end+len(headerTerminator)]

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if hasChunkedEncoding(req.Header) {
		return nil, 0, ErrChunkedBody
	}

	bodyLen := total - len(head)
	if maxBody > 0 && bodyLen > maxBody {
		return nil, 0, ErrBodyTooLarge
	}
	var body []byte
	if bodyLen > 0 {
		body = make([]byte, bodyLen)
		copy(body, buf[len(head):total])
	}

	out := &Request{
		Method:  req.Method,
		Path:    req.URL.Path,
		Proto:   req.Proto,
		Query:   req.URL.Query(),
		Headers: req.Header,
		Body:    body,
		Params:  map[string]string{},
		Bag:     map[string]any{},
	}
	out.decodeBody()
	return out, total, nil
}

// decodeBody exposes the structured form of the body based on Content-Type.
// Bodies that fail to decode stay available as raw bytes.
func (r *Request) decodeBody() {
	if len(r.Body) == 0 {
		return
	}
	switch r.ContentType() {
	case "application/json":
		var v any
		if err := json.Unmarshal(r.Body, &v); err == nil {
			r.JSON = v
		}
	case "application/x-www-form-urlencoded":
		if form, err := url.ParseQuery(string(r.Body)); err == nil {
			r.Form = form
		}
	}
}

func hasChunkedEncoding(h http.Header) bool {
	for _, v := range h.Values("Transfer-Encoding") {
		for _, p := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "chunked") {
				return true
			}
		}
	}
	return false
}

// ReadBodyJSON decodes the raw body into dst, for handlers that want a typed
// payload instead of the schema-less JSON field.
func (r *Request) ReadBodyJSON(dst any) error {
	if len(r.Body) == 0 {
		return io.EOF
	}
	return json.Unmarshal(r.Body, dst)
}
