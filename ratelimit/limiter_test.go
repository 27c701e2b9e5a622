// File: ratelimit/limiter_test.go
// Package ratelimit sliding-window tests.
// License: Apache-2.0

package ratelimit

import (
	"testing"
	"time"
)

// testClock drives the limiter through a scripted timeline.
type testClock struct{ now time.Time }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *testClock) {
	l := New(cfg)
	clk := &testClock{now: time.Unix(1_700_000_000, 0)}
	l.clock = func() time.Time { return clk.now }
	return l, clk
}

func TestSlidingWindowScenario(t *testing.T) {
	// Five messages per second, no burst: six rapid messages admit the
	// first five; after the window slides past, traffic resumes.
	l, clk := newTestLimiter(Config{
		Enabled:     true,
		MaxMessages: 5,
		Window:      time.Second,
	})

	for i := 0; i < 5; i++ {
		if d := l.CheckEvent("10.0.0.1", "chat", nil); !d.Allowed {
			t.Fatalf("message %d denied", i+1)
		}
		clk.advance(150 * time.Millisecond)
	}
	d := l.CheckEvent("10.0.0.1", "chat", nil)
	if d.Allowed {
		t.Fatal("sixth message within the window must be denied")
	}
	if d.Scope != ScopeGlobalWS || d.Limit != 5 {
		t.Fatalf("denial = %+v", d)
	}

	clk.advance(1100 * time.Millisecond)
	if d := l.CheckEvent("10.0.0.1", "chat", nil); !d.Allowed {
		t.Fatal("message after the window slid must be admitted")
	}
}

func TestBurstAllowance(t *testing.T) {
	l, _ := newTestLimiter(Config{
		Enabled:         true,
		MaxHTTPRequests: 2,
		Burst:           2,
		Window:          time.Minute,
	})
	for i := 0; i < 4; i++ {
		if d := l.CheckHTTP("10.0.0.1", "GET", "/x", nil); !d.Allowed {
			t.Fatalf("request %d denied inside burst budget", i+1)
		}
	}
	if d := l.CheckHTTP("10.0.0.1", "GET", "/x", nil); d.Allowed {
		t.Fatal("request beyond max+burst admitted")
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 1, Window: time.Minute})
	if d := l.CheckHTTP("10.0.0.1", "GET", "/x", nil); !d.Allowed {
		t.Fatal("first ip denied")
	}
	if d := l.CheckHTTP("10.0.0.1", "GET", "/x", nil); d.Allowed {
		t.Fatal("first ip should now be over limit")
	}
	if d := l.CheckHTTP("10.0.0.2", "GET", "/x", nil); !d.Allowed {
		t.Fatal("second ip must not share the first ip's window")
	}
}

func TestWhitelistBypassesAllScopes(t *testing.T) {
	l, _ := newTestLimiter(Config{
		Enabled:         true,
		MaxHTTPRequests: 1,
		Window:          time.Minute,
		Whitelist:       []string{"192.168.1.9"},
	})
	route := &Limit{Max: 1}
	for i := 0; i < 10; i++ {
		if d := l.CheckHTTP("192.168.1.9", "GET", "/x", route); !d.Allowed {
			t.Fatalf("whitelisted ip denied on request %d", i+1)
		}
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: false, MaxHTTPRequests: 0, MaxMessages: 0})
	for i := 0; i < 100; i++ {
		if d := l.CheckEvent("1.2.3.4", "spam", nil); !d.Allowed {
			t.Fatal("disabled limiter denied a message")
		}
	}
}

func TestRouteScopeDeniesIndependently(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 100, Window: time.Minute})
	route := &Limit{Max: 1}

	if d := l.CheckHTTP("10.0.0.1", "POST", "/upload", route); !d.Allowed {
		t.Fatal("first routed request denied")
	}
	d := l.CheckHTTP("10.0.0.1", "POST", "/upload", route)
	if d.Allowed {
		t.Fatal("route limit should deny before global")
	}
	if d.Scope != RouteScope("POST", "/upload") {
		t.Fatalf("denial scope = %q", d.Scope)
	}
	// Another route with the same global scope is unaffected.
	if d := l.CheckHTTP("10.0.0.1", "GET", "/other", nil); !d.Allowed {
		t.Fatal("other route caught by unrelated route scope")
	}
}

func TestGlobalDenialWinsOverRouteAdmission(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 1, Window: time.Minute})
	route := &Limit{Max: 100}

	l.CheckHTTP("10.0.0.1", "GET", "/x", route)
	d := l.CheckHTTP("10.0.0.1", "GET", "/x", route)
	if d.Allowed {
		t.Fatal("global denial must win")
	}
	if d.Scope != ScopeGlobalHTTP {
		t.Fatalf("denial scope = %q, want global", d.Scope)
	}
}

func TestBypassGlobalSkipsGlobalScope(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 1, Window: time.Minute})
	route := &Limit{Max: 3, BypassGlobal: true}

	for i := 0; i < 3; i++ {
		if d := l.CheckHTTP("10.0.0.1", "GET", "/free", route); !d.Allowed {
			t.Fatalf("bypass route denied on request %d", i+1)
		}
	}
	if d := l.CheckHTTP("10.0.0.1", "GET", "/free", route); d.Allowed {
		t.Fatal("route's own limit must still apply")
	}
	// Global scope was never charged.
	if d := l.CheckHTTP("10.0.0.1", "GET", "/other", nil); !d.Allowed {
		t.Fatal("global window should be untouched by bypass route")
	}
}

func TestRouteWhitelistExemptsRouteScopeOnly(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 2, Window: time.Minute})
	route := &Limit{Max: 1, Whitelist: []string{"10.0.0.9"}}

	// Whitelisted IP never charges the route scope, but the global scope
	// still applies.
	if d := l.CheckHTTP("10.0.0.9", "GET", "/users/{id}", route); !d.Allowed {
		t.Fatal("first whitelisted request denied")
	}
	if d := l.CheckHTTP("10.0.0.9", "GET", "/users/{id}", route); !d.Allowed {
		t.Fatal("route limit must not apply to a whitelisted ip")
	}
	d := l.CheckHTTP("10.0.0.9", "GET", "/users/{id}", route)
	if d.Allowed || d.Scope != ScopeGlobalHTTP {
		t.Fatalf("global scope must still deny: %+v", d)
	}

	// Other IPs keep the route budget.
	l2, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 100, Window: time.Minute})
	l2.CheckHTTP("10.0.0.1", "GET", "/users/{id}", route)
	if d := l2.CheckHTTP("10.0.0.1", "GET", "/users/{id}", route); d.Allowed {
		t.Fatal("non-whitelisted ip must hit the route limit")
	}
}

func TestRouteWhitelistWithBypassGlobal(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 1, Window: time.Minute})
	route := &Limit{Max: 1, BypassGlobal: true, Whitelist: []string{"10.0.0.9"}}

	for i := 0; i < 5; i++ {
		if d := l.CheckHTTP("10.0.0.9", "GET", "/free", route); !d.Allowed {
			t.Fatalf("request %d denied for a whitelisted ip on a bypass route", i+1)
		}
	}
	l.CheckHTTP("10.0.0.1", "GET", "/free", route)
	if d := l.CheckHTTP("10.0.0.1", "GET", "/free", route); d.Allowed {
		t.Fatal("non-whitelisted ip must keep the route budget")
	}
}

func TestDenialMetadata(t *testing.T) {
	l, clk := newTestLimiter(Config{Enabled: true, MaxMessages: 1, Window: 10 * time.Second})
	l.CheckEvent("10.0.0.1", "chat", nil)
	clk.advance(2 * time.Second)
	d := l.CheckEvent("10.0.0.1", "chat", nil)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.RetryAfter != 8*time.Second {
		t.Fatalf("retry after = %v, want 8s", d.RetryAfter)
	}
	if got := d.Reset.Sub(clk.now); got != 8*time.Second {
		t.Fatalf("reset in %v, want 8s", got)
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	cfg := Config{Enabled: true, MaxMessages: 5, Window: time.Second, CleanupInterval: time.Minute}
	l, clk := newTestLimiter(cfg)

	l.CheckEvent("10.0.0.1", "chat", nil)
	l.CheckEvent("10.0.0.2", "chat", nil)
	if l.Buckets() != 2 {
		t.Fatalf("buckets = %d, want 2", l.Buckets())
	}

	clk.advance(2 * time.Second)
	l.Sweep(clk.now)
	if l.Buckets() != 0 {
		t.Fatalf("buckets = %d after sweep, want 0", l.Buckets())
	}

	// Sweep self-paces: a second call inside the interval is a no-op even
	// with new stale data.
	l.CheckEvent("10.0.0.3", "chat", nil)
	clk.advance(2 * time.Second)
	l.Sweep(clk.now)
	if l.Buckets() != 1 {
		t.Fatal("sweep ran again before the cleanup interval elapsed")
	}
}

func TestHTTPResponseShape(t *testing.T) {
	l, _ := newTestLimiter(Config{Enabled: true, MaxHTTPRequests: 1, Window: time.Minute})
	l.CheckHTTP("10.0.0.1", "GET", "/x", nil)
	d := l.CheckHTTP("10.0.0.1", "GET", "/x", nil)

	resp := HTTPResponse(d)
	if resp.Status != 429 {
		t.Fatalf("status = %d", resp.Status)
	}
	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"} {
		if resp.Headers.Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if resp.Headers.Get("X-RateLimit-Remaining") != "0" {
		t.Fatal("remaining must be 0 on denial")
	}

	msg := EventMessage(d)
	if msg.Event != EventName {
		t.Fatalf("event = %q", msg.Event)
	}
	data, ok := msg.Data.(map[string]any)
	if !ok || data["error"] != EventName {
		t.Fatalf("data = %#v", msg.Data)
	}
}
