// File: server/sniff.go
// Package server protocol detection on the first bytes of a connection.
// License: Apache-2.0

package server

import (
	"bytes"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/protocol"
)

// methodTokens are the request-line prefixes recognised as HTTP, trailing
// space included.
var methodTokens = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
	[]byte("HEAD "),
}

var (
	getToken         = []byte("GET ")
	headerTerminator = []byte("\r\n\r\n")
	upgradeHeader    = []byte("upgrade")
	websocketToken   = []byte("websocket")
)

// detectProtocol classifies the first bytes of a connection. Non-GET
// requests and non-HTTP byte streams tag http immediately; a GET stays
// undecided until either the Upgrade header or the end of the header block
// is seen, since the upgrade marker rarely fits in the first segment.
func detectProtocol(buf []byte) (api.ClientType, bool) {
	if len(buf) == 0 {
		return api.ClientUnknown, false
	}

	matched := false
	for _, m := range methodTokens {
		if bytes.HasPrefix(buf, m) {
			matched = true
			break
		}
		if len(buf) < len(m) && bytes.HasPrefix(m, buf) {
			// Could still grow into a method token.
			return api.ClientUnknown, false
		}
	}
	if !matched {
		return api.ClientHTTP, true
	}
	if !bytes.HasPrefix(buf, getToken) {
		return api.ClientHTTP, true
	}

	if hasWebsocketUpgrade(buf) {
		return api.ClientWS, true
	}
	if bytes.Contains(buf, headerTerminator) || len(buf) > protocol.MaxHandshakeHeadersSize {
		return api.ClientHTTP, true
	}
	return api.ClientUnknown, false
}

// hasWebsocketUpgrade scans header lines for `Upgrade: websocket`,
// case-insensitive. Partial trailing lines simply fail to match until more
// bytes arrive.
func hasWebsocketUpgrade(buf []byte) bool {
	for _, line := range bytes.Split(buf, []byte("\r\n")) {
		sep := bytes.IndexByte(line, ':')
		if sep < 0 {
			continue
		}
		name := bytes.TrimSpace(line[:sep])
		if !bytes.EqualFold(name, upgradeHeader) {
			continue
		}
		if bytes.Contains(bytes.ToLower(line[sep+1:]), websocketToken) {
			return true
		}
	}
	return false
}
