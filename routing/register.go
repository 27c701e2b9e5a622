// File: routing/register.go
// Package routing controller registration. Controllers expose their routes
// through small descriptor interfaces; Register scans a controller once and
// installs everything it declares. Reflection is used only to diagnose
// near-miss method signatures.
// License: Apache-2.0

package routing

import (
	"reflect"

	"github.com/sockeon/sockeon-go/api"
)

// SocketRoutes is implemented by controllers exposing WebSocket event routes.
type SocketRoutes interface {
	SocketRoutes() []SocketRoute
}

// HTTPRoutes is implemented by controllers exposing HTTP routes.
type HTTPRoutes interface {
	HTTPRoutes() []HTTPRoute
}

// ConnectListener is implemented by controllers observing new connections.
type ConnectListener interface {
	OnConnect(h api.ServerHandle, client api.ClientID)
}

// DisconnectListener is implemented by controllers observing disconnects.
type DisconnectListener interface {
	OnDisconnect(h api.ServerHandle, client api.ClientID)
}

// descriptor method names checked for near misses.
var descriptorMethods = []string{"SocketRoutes", "HTTPRoutes", "OnConnect", "OnDisconnect"}

// Register installs everything a controller declares. A controller that
// declares nothing, or that carries a descriptor method with the wrong
// signature, is a registration error.
func Register(t *Table, controller any) error {
	if controller == nil {
		return api.Errorf(api.ClassValidation, "nil controller")
	}
	registered := false

	if c, ok := controller.(SocketRoutes); ok {
		for _, r := range c.SocketRoutes() {
			if err := t.OnEvent(r); err != nil {
				return err
			}
		}
		registered = true
	}
	if c, ok := controller.(HTTPRoutes); ok {
		for _, r := range c.HTTPRoutes() {
			if err := t.Handle(r); err != nil {
				return err
			}
		}
		registered = true
	}
	if c, ok := controller.(ConnectListener); ok {
		t.OnConnect(c.OnConnect)
		registered = true
	}
	if c, ok := controller.(DisconnectListener); ok {
		t.OnDisconnect(c.OnDisconnect)
		registered = true
	}

	if !registered {
		if name, found := nearMiss(controller); found {
			return api.Errorf(api.ClassValidation,
				"controller %T has method %s with an unexpected signature", controller, name)
		}
		return api.Errorf(api.ClassValidation, "controller %T declares no routes", controller)
	}
	return nil
}

// nearMiss reports a descriptor-named method that did not satisfy its
// interface, which almost always means a typo'd signature.
func nearMiss(controller any) (string, bool) {
	v := reflect.ValueOf(controller)
	for _, name := range descriptorMethods {
		if v.MethodByName(name).IsValid() {
			return name, true
		}
	}
	return "", false
}
