// File: ratelimit/limiter.go
// Package ratelimit implements the sliding-window limiter that fronts both
// pipelines. Each (scope, ip) pair keeps the timestamps of its recent
// events; a request is admitted while the window holds fewer than
// max+burst entries. The limiter is owned by the event loop and needs no
// locking.
// License: Apache-2.0

package ratelimit

import (
	"time"
)

// Scope name builders. Global scopes are fixed; route and event scopes are
// derived from the dispatch key.
const (
	ScopeGlobalHTTP = "global-http"
	ScopeGlobalWS   = "global-ws"
)

// RouteScope names the per-route scope for an HTTP route.
func RouteScope(method, path string) string { return "route:" + method + " " + path }

// EventScope names the per-event scope for a WebSocket event.
func EventScope(event string) string { return "event:" + event }

// Config is the global limiter policy, set through the server constructor.
type Config struct {
	Enabled bool

	// MaxHTTPRequests bounds the global-http scope, MaxMessages the
	// global-ws scope, both per Window.
	MaxHTTPRequests int
	MaxMessages     int
	Window          time.Duration

	// Burst admits short spikes above the steady limit.
	Burst int

	// Whitelist lists IPs the limiter never counts or denies.
	Whitelist []string

	// CleanupInterval paces the housekeeping sweep that drops idle buckets.
	CleanupInterval time.Duration
}

// DefaultConfig returns the limiter defaults: enabled, 100 requests and 200
// messages per minute, no burst.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxHTTPRequests: 100,
		MaxMessages:     200,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limit is a per-route or per-event override. BypassGlobal skips the global
// scope entirely for routes that manage their own budget; Whitelist exempts
// IPs from this scope only, leaving the global scope in force.
type Limit struct {
	Max          int
	Window       time.Duration
	Burst        int
	BypassGlobal bool
	Whitelist    []string
}

func (r *Limit) whitelisted(ip string) bool {
	for _, w := range r.Whitelist {
		if w == ip {
			return true
		}
	}
	return false
}

// Decision is the outcome of a limiter check, carrying everything the
// response builders need.
type Decision struct {
	Allowed    bool
	Scope      string
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
	Reset      time.Time
}

// Limiter tracks sliding windows for every (scope, ip) pair.
type Limiter struct {
	cfg       Config
	whitelist map[string]struct{}
	windows   map[string][]time.Time
	lastSweep time.Time

	// maxWindow is the widest window any scope has used; the sweep expires
	// against it so long route windows are never cut short.
	maxWindow time.Duration

	clock func() time.Time
}

// New builds a limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	wl := make(map[string]struct{}, len(cfg.Whitelist))
	for _, ip := range cfg.Whitelist {
		wl[ip] = struct{}{}
	}
	return &Limiter{
		cfg:       cfg,
		whitelist: wl,
		windows:   make(map[string][]time.Time),
		maxWindow: cfg.Window,
		clock:     time.Now,
	}
}

// Whitelisted reports whether ip bypasses the limiter.
func (l *Limiter) Whitelisted(ip string) bool {
	_, ok := l.whitelist[ip]
	return ok
}

// CheckHTTP evaluates the global-http scope and, when route is non-nil, the
// route scope. With BypassGlobal only the route scope applies; otherwise
// both windows are charged and the first denial wins.
func (l *Limiter) CheckHTTP(ip, method, path string, route *Limit) Decision {
	return l.check(ip, ScopeGlobalHTTP, l.cfg.MaxHTTPRequests, routeScopeOf(route, RouteScope(method, path)), route)
}

// CheckEvent evaluates the global-ws scope and, when route is non-nil, the
// event scope.
func (l *Limiter) CheckEvent(ip, event string, route *Limit) Decision {
	return l.check(ip, ScopeGlobalWS, l.cfg.MaxMessages, routeScopeOf(route, EventScope(event)), route)
}

func routeScopeOf(route *Limit, name string) string {
	if route == nil {
		return ""
	}
	return name
}

func (l *Limiter) check(ip, globalScope string, globalMax int, routeScope string, route *Limit) Decision {
	allowed := Decision{Allowed: true}
	if !l.cfg.Enabled || l.Whitelisted(ip) {
		return allowed
	}
	now := l.clock()

	if route == nil || !route.BypassGlobal {
		d := l.admit(globalScope, ip, globalMax, l.cfg.Burst, l.cfg.Window, now)
		if route == nil || route.whitelisted(ip) {
			return d
		}
		rd := l.admit(routeScope, ip, route.Max, route.Burst, routeWindow(route, l.cfg.Window), now)
		if !d.Allowed {
			return d
		}
		return rd
	}
	if route.whitelisted(ip) {
		return allowed
	}
	return l.admit(routeScope, ip, route.Max, route.Burst, routeWindow(route, l.cfg.Window), now)
}

func routeWindow(route *Limit, fallback time.Duration) time.Duration {
	if route.Window > 0 {
		return route.Window
	}
	return fallback
}

// admit applies the sliding-window rule to one scope: expire old entries,
// compare against max+burst, and record the event regardless of outcome so
// hammering while denied does not earn earlier readmission.
func (l *Limiter) admit(scope, ip string, max, burst int, window time.Duration, now time.Time) Decision {
	key := scope + "|" + ip
	cutoff := now.Add(-window)
	if window > l.maxWindow {
		l.maxWindow = window
	}

	list := l.windows[key]
	keep := list[:0]
	for _, ts := range list {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}

	d := Decision{
		Allowed: len(keep) < max+burst,
		Scope:   scope,
		Limit:   max,
		Window:  window,
	}
	keep = append(keep, now)
	l.windows[key] = keep

	if !d.Allowed {
		d.Reset = keep[0].Add(window)
		d.RetryAfter = d.Reset.Sub(now)
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
	}
	return d
}

// Sweep expires stale timestamps and drops empty buckets. The event loop
// calls it from housekeeping; it self-paces on CleanupInterval.
func (l *Limiter) Sweep(now time.Time) {
	if !l.cfg.Enabled {
		return
	}
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < l.cfg.CleanupInterval {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-l.maxWindow)
	for key, list := range l.windows {
		keep := list[:0]
		for _, ts := range list {
			if ts.After(cutoff) {
				keep = append(keep, ts)
			}
		}
		if len(keep) == 0 {
			delete(l.windows, key)
			continue
		}
		l.windows[key] = keep
	}
}

// Buckets reports the live bucket count, used by stats and tests.
func (l *Limiter) Buckets() int { return len(l.windows) }
