package dbus

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/migui/internal/broker"
)

const (
	// TransportName is the "-w" value served by this package.
	TransportName = "dbus"
	// DefaultPrefix is the bus name and interface prefix.
	DefaultPrefix = "org.migui"
	// DefaultPathPrefix is the object path prefix.
	DefaultPathPrefix = "/org/migui"

	busSession = "session"
	busSystem  = "system"

	introspectMethod = "org.freedesktop.DBus.Introspectable.Introspect"
	hasOwnerMethod   = "org.freedesktop.DBus.NameHasOwner"
)

// Options configures the bus connection and naming scheme.
type Options struct {
	// Bus is "session", "system" or a bus address.
	Bus        string
	Prefix     string
	PathPrefix string
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Bus == "" {
		o.Bus = busSession
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.PathPrefix == "" {
		o.PathPrefix = DefaultPathPrefix
	}
	o.PathPrefix = strings.TrimSuffix(o.PathPrefix, "/")
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// BusName returns the well-known bus name for identity.
func (o Options) BusName(identity string) string {
	return o.withDefaults().Prefix + "." + identity
}

// Interface returns the interface name for identity.
func (o Options) Interface(identity string) string {
	return o.BusName(identity)
}

// ObjectPath returns the object path for identity.
func (o Options) ObjectPath(identity string) dbus.ObjectPath {
	return dbus.ObjectPath(o.withDefaults().PathPrefix + "/" + identity)
}

// Connect opens a private connection to the configured bus.
func (o Options) Connect(ctx context.Context) (*dbus.Conn, error) {
	o = o.withDefaults()

	var (
		conn *dbus.Conn
		err  error
	)
	switch o.Bus {
	case busSession:
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	case busSystem:
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	default:
		conn, err = dbus.Connect(o.Bus, dbus.WithContext(ctx))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", o.Bus, err)
	}
	return conn, nil
}

// Resolver resolves references to objects on the bus. The connection is
// opened on first use.
type Resolver struct {
	opts Options

	mu    sync.Mutex
	conn  *dbus.Conn
	owned bool
}

// NewResolver creates a resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts.withDefaults()}
}

// NewResolverWithConn creates a resolver on an existing connection. Close
// does not close conn.
func NewResolverWithConn(conn *dbus.Conn, opts Options) *Resolver {
	r := NewResolver(opts)
	r.conn = conn
	return r
}

// Resolve implements broker.Resolver.
func (r *Resolver) Resolve(ctx context.Context, ref broker.Reference) (broker.Proxy, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	name := r.opts.BusName(ref.Identity)
	path := r.opts.ObjectPath(ref.Identity)
	iface := r.opts.Interface(ref.Identity)

	var hasOwner bool
	if err := conn.BusObject().CallWithContext(ctx, hasOwnerMethod, 0, name).Store(&hasOwner); err != nil {
		return nil, fmt.Errorf("failed to query owner of %s: %w", name, err)
	}
	if !hasOwner {
		return nil, fmt.Errorf("%w: bus name %s has no owner", broker.ErrObjectNotFound, name)
	}

	obj := conn.Object(name, path)
	var data string
	if err := obj.CallWithContext(ctx, introspectMethod, 0).Store(&data); err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", path, err)
	}
	methods, err := interfaceMethods(data, iface)
	if err != nil {
		return nil, err
	}

	r.opts.Logger.Debug("resolved bus object", "name", name, "path", path, "methods", len(methods))
	return &Proxy{
		obj:      obj,
		identity: ref.Identity,
		iface:    iface,
		methods:  methods,
	}, nil
}

func (r *Resolver) connection(ctx context.Context) (*dbus.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && r.conn.Connected() {
		return r.conn, nil
	}
	conn, err := r.opts.Connect(ctx)
	if err != nil {
		return nil, err
	}
	r.conn = conn
	r.owned = true
	return conn, nil
}

// Close closes the connection if the resolver opened it. An injected
// connection is only released.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, owned := r.conn, r.owned
	r.conn, r.owned = nil, false
	if conn == nil || !owned {
		return nil
	}
	return conn.Close()
}

// interfaceMethods parses introspection data and returns the method names
// of iface. A missing interface means the object is not what was asked for.
func interfaceMethods(data, iface string) (map[string]bool, error) {
	var node introspect.Node
	if err := xml.Unmarshal([]byte(data), &node); err != nil {
		return nil, fmt.Errorf("failed to parse introspection data: %w", err)
	}

	for _, i := range node.Interfaces {
		if i.Name != iface {
			continue
		}
		methods := make(map[string]bool, len(i.Methods))
		for _, m := range i.Methods {
			methods[m.Name] = true
		}
		return methods, nil
	}
	return nil, fmt.Errorf("%w: object does not implement %s", broker.ErrObjectNotFound, iface)
}
