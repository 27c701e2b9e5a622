// File: routing/register_test.go
// Package routing controller registration tests.
// License: Apache-2.0

package routing

import (
	"errors"
	"testing"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/httpx"
)

// chatController declares routes through all four descriptor interfaces.
type chatController struct {
	connects    int
	disconnects int
}

func (c *chatController) SocketRoutes() []SocketRoute {
	return []SocketRoute{
		{Event: "chat.message", Handler: func(h api.ServerHandle, id api.ClientID, data any) error { return nil }},
		{Event: "chat.typing", Handler: func(h api.ServerHandle, id api.ClientID, data any) error { return nil }},
	}
}

func (c *chatController) HTTPRoutes() []HTTPRoute {
	return []HTTPRoute{
		{Method: "GET", Path: "/history/{room}", Handler: func(h api.ServerHandle, r *httpx.Request) *httpx.Response {
			return httpx.JSON(200, nil)
		}},
	}
}

func (c *chatController) OnConnect(h api.ServerHandle, id api.ClientID)    { c.connects++ }
func (c *chatController) OnDisconnect(h api.ServerHandle, id api.ClientID) { c.disconnects++ }

func TestRegisterController(t *testing.T) {
	tbl := NewTable()
	ctrl := &chatController{}
	if err := Register(tbl, ctrl); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := tbl.Events(); len(got) != 2 {
		t.Fatalf("events = %v", got)
	}
	if _, _, ok := tbl.ResolveHTTP("GET", "/history/general"); !ok {
		t.Fatal("http route not installed")
	}
	if len(tbl.ConnectListeners()) != 1 || len(tbl.DisconnectListeners()) != 1 {
		t.Fatal("connection listeners not installed")
	}

	tbl.ConnectListeners()[0](nil, 1)
	if ctrl.connects != 1 {
		t.Fatal("connect listener not bound to controller")
	}
}

type emptyController struct{}

func TestRegisterRejectsEmptyController(t *testing.T) {
	if err := Register(NewTable(), &emptyController{}); err == nil {
		t.Fatal("controller with no routes accepted")
	}
	if err := Register(NewTable(), nil); err == nil {
		t.Fatal("nil controller accepted")
	}
}

// misshapenController has the right method name with the wrong signature.
type misshapenController struct{}

func (m *misshapenController) OnConnect(id api.ClientID) {}

func TestRegisterDiagnosesWrongSignature(t *testing.T) {
	err := Register(NewTable(), &misshapenController{})
	if err == nil {
		t.Fatal("misshapen controller accepted")
	}
	var e *api.Error
	if !errors.As(err, &e) || e.Class != api.ClassValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

// partialController only listens for disconnects, which is enough.
type partialController struct{ seen []api.ClientID }

func (p *partialController) OnDisconnect(h api.ServerHandle, id api.ClientID) {
	p.seen = append(p.seen, id)
}

func TestRegisterPartialController(t *testing.T) {
	tbl := NewTable()
	p := &partialController{}
	if err := Register(tbl, p); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, fn := range tbl.DisconnectListeners() {
		fn(nil, 9)
	}
	if len(p.seen) != 1 || p.seen[0] != 9 {
		t.Fatalf("seen = %v", p.seen)
	}
}

func TestRegisterPropagatesRouteErrors(t *testing.T) {
	tbl := NewTable()
	bad := &badRouteController{}
	if err := Register(tbl, bad); err == nil {
		t.Fatal("invalid event name accepted through controller")
	}
}

type badRouteController struct{}

func (b *badRouteController) SocketRoutes() []SocketRoute {
	return []SocketRoute{{Event: "has space", Handler: func(h api.ServerHandle, id api.ClientID, data any) error { return nil }}}
}
