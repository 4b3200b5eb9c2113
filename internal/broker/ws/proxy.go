package ws

import (
	"context"
	"encoding/json"
	"fmt"
)

// Proxy is a remote object reachable through a Conn.
type Proxy struct {
	conn     *Conn
	identity string
	typeID   string
}

// Identity returns the object identity.
func (p *Proxy) Identity() string { return p.identity }

// Transport returns "ws".
func (p *Proxy) Transport() string { return TransportName }

// Type returns the type id reported by the broker, e.g. "::Migui::DeviceManager".
func (p *Proxy) Type() string { return p.typeID }

// Invoke calls method with params encoded as JSON and decodes the result into reply.
func (p *Proxy) Invoke(ctx context.Context, method string, params any, reply any) error {
	req := Request{
		Op:       OpInvoke,
		Identity: p.identity,
		Method:   method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		req.Params = raw
	}

	result, err := p.conn.call(ctx, req)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", p.identity, method, err)
	}

	if reply == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, reply); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
