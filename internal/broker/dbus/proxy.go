package dbus

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
)

// ErrUnknownMethod is returned for methods missing from the introspected interface.
var ErrUnknownMethod = errors.New("unknown method")

// Proxy is a bus object.
type Proxy struct {
	obj      dbus.BusObject
	identity string
	iface    string
	methods  map[string]bool
}

// Identity returns the object identity.
func (p *Proxy) Identity() string { return p.identity }

// Transport returns "dbus".
func (p *Proxy) Transport() string { return TransportName }

// Interface returns the D-Bus interface the proxy calls.
func (p *Proxy) Interface() string { return p.iface }

// Methods returns the introspected method names, sorted.
func (p *Proxy) Methods() []string {
	names := make([]string, 0, len(p.methods))
	for name := range p.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls iface.method. A []any params value is spread into positional
// arguments, anything else is sent as the single argument. reply must be a
// pointer matching the first return value.
func (p *Proxy) Invoke(ctx context.Context, method string, params any, reply any) error {
	if !p.methods[method] {
		return fmt.Errorf("%s.%s: %w", p.identity, method, ErrUnknownMethod)
	}

	call := p.obj.CallWithContext(ctx, p.iface+"."+method, 0, callArgs(params)...)
	if call.Err != nil {
		return fmt.Errorf("%s.%s: %w", p.identity, method, call.Err)
	}

	if reply == nil || len(call.Body) == 0 {
		return nil
	}
	if err := dbus.Store(call.Body[:1], reply); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func callArgs(params any) []any {
	switch v := params.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
