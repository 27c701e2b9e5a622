// File: routing/table.go
// Package routing route table storage and dispatch resolution.
// License: Apache-2.0

package routing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sockeon/sockeon-go/api"
)

// Event names are restricted to a conservative charset so they can travel
// in URLs, logs, and metrics labels unescaped.
var eventNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

type paramRoute struct {
	route *HTTPRoute
	re    *regexp.Regexp
	names []string
}

// Table is the registration target for all routes. Exact HTTP routes are
// indexed by "METHOD path"; parameterised routes keep registration order,
// which is the documented tie-break.
type Table struct {
	events     map[string]*SocketRoute
	exact      map[string]*HTTPRoute
	params     []*paramRoute
	connect    []ConnectFunc
	disconnect []ConnectFunc
}

// NewTable returns an empty route table.
func NewTable() *Table {
	return &Table{
		events: make(map[string]*SocketRoute),
		exact:  make(map[string]*HTTPRoute),
	}
}

// OnEvent registers a WebSocket event route. Event names must match
// [a-zA-Z0-9._:-]+ and be unique.
func (t *Table) OnEvent(r SocketRoute) error {
	if r.Handler == nil {
		return api.Errorf(api.ClassValidation, "event %q has no handler", r.Event)
	}
	if !eventNamePattern.MatchString(r.Event) {
		return api.Errorf(api.ClassValidation, "invalid event name %q", r.Event)
	}
	if _, exists := t.events[r.Event]; exists {
		return api.Errorf(api.ClassValidation, "event %q already registered", r.Event)
	}
	t.events[r.Event] = &r
	return nil
}

// Handle registers an HTTP route. Paths containing {name} segments are
// compiled to anchored patterns; everything else resolves exactly.
func (t *Table) Handle(r HTTPRoute) error {
	if r.Handler == nil {
		return api.Errorf(api.ClassValidation, "route %s %s has no handler", r.Method, r.Path)
	}
	if r.Method == "" || !strings.HasPrefix(r.Path, "/") {
		return api.Errorf(api.ClassValidation, "route %q %q is malformed", r.Method, r.Path)
	}
	r.Method = strings.ToUpper(r.Method)

	if !strings.Contains(r.Path, "{") {
		key := r.Method + " " + r.Path
		if _, exists := t.exact[key]; exists {
			return api.Errorf(api.ClassValidation, "route %s already registered", key)
		}
		t.exact[key] = &r
		return nil
	}

	re, names, err := compilePattern(r.Path)
	if err != nil {
		return err
	}
	t.params = append(t.params, &paramRoute{route: &r, re: re, names: names})
	return nil
}

// compilePattern converts a {name} path into an anchored regexp, escaping
// static segments and capturing each parameter as one non-slash segment.
func compilePattern(path string) (*regexp.Regexp, []string, error) {
	parts := strings.Split(path, "/")
	regexParts := make([]string, 0, len(parts))
	var names []string

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			name := part[1 : len(part)-1]
			if !eventNamePattern.MatchString(name) {
				return nil, nil, api.Errorf(api.ClassValidation, "invalid parameter name %q in %q", name, path)
			}
			regexParts = append(regexParts, `([^/]+)`)
			names = append(names, name)
			continue
		}
		if strings.Contains(part, "{") || strings.Contains(part, "}") {
			return nil, nil, api.Errorf(api.ClassValidation, "malformed parameter segment %q in %q", part, path)
		}
		regexParts = append(regexParts, regexp.QuoteMeta(part))
	}

	re, err := regexp.Compile("^" + strings.Join(regexParts, "/") + "$")
	if err != nil {
		return nil, nil, api.WrapError(api.ClassValidation, err, "cannot compile route pattern "+path)
	}
	return re, names, nil
}

// OnConnect adds a connection-established listener.
func (t *Table) OnConnect(fn ConnectFunc) {
	t.connect = append(t.connect, fn)
}

// OnDisconnect adds a pre-close listener.
func (t *Table) OnDisconnect(fn ConnectFunc) {
	t.disconnect = append(t.disconnect, fn)
}

// ResolveEvent looks up a WebSocket event route.
func (t *Table) ResolveEvent(event string) (*SocketRoute, bool) {
	r, ok := t.events[event]
	return r, ok
}

// ResolveHTTP finds the route for (method, path). Exact matches always win;
// among parameterised routes the first registered match wins. The returned
// map holds the captured parameters.
func (t *Table) ResolveHTTP(method, path string) (*HTTPRoute, map[string]string, bool) {
	method = strings.ToUpper(method)
	if r, ok := t.exact[method+" "+path]; ok {
		return r, nil, true
	}
	for _, pr := range t.params {
		if pr.route.Method != method {
			continue
		}
		m := pr.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		params := make(map[string]string, len(pr.names))
		for i, name := range pr.names {
			params[name] = m[i+1]
		}
		return pr.route, params, true
	}
	return nil, nil, false
}

// ConnectListeners returns the connect listeners in registration order.
func (t *Table) ConnectListeners() []ConnectFunc { return t.connect }

// DisconnectListeners returns the disconnect listeners in registration order.
func (t *Table) DisconnectListeners() []ConnectFunc { return t.disconnect }

// Events lists the registered event names, sorted.
func (t *Table) Events() []string {
	out := make([]string, 0, len(t.events))
	for name := range t.events {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HTTPRouteCount reports how many HTTP routes are registered.
func (t *Table) HTTPRouteCount() int { return len(t.exact) + len(t.params) }
