// File: ratelimit/response.go
// Package ratelimit denial envelopes for both pipelines.
// License: Apache-2.0

package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/httpx"
)

// EventName is the event sent to a WebSocket client whose message was
// dropped by the limiter.
const EventName = "rate_limit_exceeded"

func retrySeconds(d Decision) int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

func denialBody(d Decision) map[string]any {
	body := map[string]any{
		"error":       EventName,
		"message":     "too many requests, slow down",
		"retry_after": retrySeconds(d),
		"limit":       d.Limit,
		"window":      int(d.Window.Seconds()),
	}
	if d.Scope != ScopeGlobalHTTP && d.Scope != ScopeGlobalWS {
		kind := "route"
		if strings.HasPrefix(d.Scope, "event:") {
			kind = "event"
		}
		body["type"] = kind
	}
	return body
}

// HTTPResponse renders a denial as the documented 429 with the
// X-RateLimit-* and Retry-After headers.
func HTTPResponse(d Decision) *httpx.Response {
	resp := httpx.JSON(http.StatusTooManyRequests, denialBody(d))
	resp.Headers.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	resp.Headers.Set("X-RateLimit-Remaining", "0")
	resp.Headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	resp.Headers.Set("Retry-After", strconv.Itoa(retrySeconds(d)))
	return resp
}

// EventMessage renders a denial as the message pushed to a WebSocket client
// in place of dispatching its event.
func EventMessage(d Decision) api.Message {
	return api.Message{Event: EventName, Data: denialBody(d)}
}
