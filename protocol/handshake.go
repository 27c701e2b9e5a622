// File: protocol/handshake.go
// Package protocol
// License: Apache-2.0
//
// RFC 6455 opening handshake: parse the upgrade request, validate required
// headers and origin, compute Sec-WebSocket-Accept, and build the 101
// response. Parsing reuses net/http's request reader once the header block
// is complete; incremental buffering stays with the caller.

package protocol

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// headerTerminator marks the end of an HTTP header block.
var headerTerminator = []byte("\r\n\r\n")

// HandshakeRequest is the parsed WebSocket upgrade request.
type HandshakeRequest struct {
	Method     string
	Path       string
	Query      url.Values
	Headers    http.Header // case-insensitive via http.Header keys
	Origin     string
	Key        string
	Version    string
	RemoteAddr string
}

// Header returns a header value by case-insensitive name.
func (r *HandshakeRequest) Header(name string) string {
	return r.Headers.Get(name)
}

// QueryParam returns the first value of a query parameter.
func (r *HandshakeRequest) QueryParam(name string) string {
	return r.Query.Get(name)
}

// HandshakeError carries the HTTP status the server must answer with before
// closing the connection.
type HandshakeError struct {
	Status int
	Reason string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected: %d %s", e.Status, e.Reason)
}

// ParseHandshake parses a complete upgrade request at the front of buf and
// returns it with the number of bytes consumed. An incomplete header block
// returns (nil, 0, nil); the caller keeps buffering. Malformed requests
// return a *HandshakeError with status 400.
func ParseHandshake(buf []byte) (*HandshakeRequest, int, error) {
	end := bytes.Index(buf, headerTerminator)
	if end < 0 {
		if len(buf) > MaxHandshakeHeadersSize {
			return nil, 0, &HandshakeError{Status: 400, Reason: "handshake headers too large"}
		}
		return nil, 0, nil
	}
	head := buf[:end+len(headerTerminator)]
	if len(head) > MaxHandshakeHeadersSize {
		return nil, 0, &HandshakeError{Status: 400, Reason: "handshake headers too large"}
	}

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return nil, 0, &HandshakeError{Status: 400, Reason: "malformed upgrade request"}
	}

	hs := &HandshakeRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query(),
		Headers: req.Header,
		Origin:  req.Header.Get("Origin"),
		Key:     strings.TrimSpace(req.Header.Get("Sec-WebSocket-Key")),
		Version: req.Header.Get("Sec-WebSocket-Version"),
	}
	return hs, len(head), nil
}

// ValidateHandshake applies the upgrade preconditions. allowedOrigins follows
// the configured origin list: ["*"] admits any origin. A request without an
// Origin header is admitted (non-browser client).
func ValidateHandshake(hs *HandshakeRequest, allowedOrigins []string) *HandshakeError {
	if hs.Method != http.MethodGet {
		return &HandshakeError{Status: 400, Reason: "upgrade request must be GET"}
	}
	if !headerContainsToken(hs.Headers, "Connection", "Upgrade") ||
		!headerContainsToken(hs.Headers, "Upgrade", "websocket") {
		return &HandshakeError{Status: 400, Reason: "invalid upgrade headers"}
	}
	if hs.Key == "" {
		return &HandshakeError{Status: 400, Reason: "missing Sec-WebSocket-Key"}
	}
	if hs.Version != RequiredWebSocketVersion {
		return &HandshakeError{Status: 426, Reason: "unsupported websocket version"}
	}
	if hs.Origin != "" && !originAllowed(hs.Origin, allowedOrigins) {
		return &HandshakeError{Status: 403, Reason: "origin not allowed"}
	}
	return nil
}

// AcceptKey computes base64(SHA1(key + GUID)) per RFC 6455 §4.2.2.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// BuildAcceptResponse renders the 101 Switching Protocols response.
// echoOrigin is set when the origin was validated against an explicit list,
// in which case it is reflected in Access-Control-Allow-Origin.
func BuildAcceptResponse(hs *HandshakeRequest, echoOrigin bool) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + AcceptKey(hs.Key) + "\r\n")
	if echoOrigin && hs.Origin != "" {
		b.WriteString("Access-Control-Allow-Origin: " + hs.Origin + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// BuildRejectResponse renders a terse handshake rejection.
func BuildRejectResponse(status int, reason string) []byte {
	text := http.StatusText(status)
	if text == "" {
		text = "Error"
	}
	body := reason
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, text)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: close\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// originAllowed checks origin against the configured list. "*" admits all.
func originAllowed(origin string, allowed []string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// OriginExplicit reports whether the list names concrete origins rather than
// the wildcard, which decides whether the accepted origin is echoed back.
func OriginExplicit(allowed []string) bool {
	for _, o := range allowed {
		if o == "*" {
			return false
		}
	}
	return len(allowed) > 0
}

// headerContainsToken checks if headerName contains the given token,
// case-insensitive, across comma-separated value lists.
func headerContainsToken(h http.Header, headerName, token string) bool {
	token = strings.ToLower(token)
	for _, v := range h.Values(headerName) {
		for _, p := range strings.Split(v, ",") {
			if strings.ToLower(strings.TrimSpace(p)) == token {
				return true
			}
		}
	}
	return false
}
