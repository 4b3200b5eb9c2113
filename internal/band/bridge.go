package band

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/migui/internal/broker"
)

// Bridge republishes a DeviceManager proxy as a bus object, so a manager
// reached over one transport can be resolved over D-Bus.
type Bridge struct {
	ctx     context.Context
	proxy   broker.Proxy
	timeout time.Duration
}

// NewBridge forwards bus calls to proxy. Calls are bound to ctx and each
// one is limited to timeout.
func NewBridge(ctx context.Context, proxy broker.Proxy, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bridge{ctx: ctx, proxy: proxy, timeout: timeout}
}

func (b *Bridge) forward(method string, params, reply any) *dbus.Error {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	if err := b.proxy.Invoke(ctx, method, params, reply); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Discover forwards a device scan.
func (b *Bridge) Discover(req discoverRequest) ([]Device, *dbus.Error) {
	var devices []Device
	if err := b.forward(MethodDiscover, req, &devices); err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// Read forwards a characteristic read.
func (b *Bridge) Read(req readRequest) ([]byte, *dbus.Error) {
	var data []byte
	if err := b.forward(MethodRead, req, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Write forwards a handle write.
func (b *Bridge) Write(req writeRequest) *dbus.Error {
	return b.forward(MethodWrite, req, nil)
}
