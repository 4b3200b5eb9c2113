package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Service publishes Go objects on the bus so the Resolver can find them.
// Exported methods of an object become D-Bus methods and must return a
// trailing *dbus.Error.
type Service struct {
	conn   *dbus.Conn
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	names []string
}

// NewService creates a service on conn.
func NewService(conn *dbus.Conn, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		conn:   conn,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Export publishes obj as identity: it exports the object and its
// introspection data, then claims the bus name.
func (s *Service) Export(identity string, obj any) error {
	name := s.opts.BusName(identity)
	path := s.opts.ObjectPath(identity)
	iface := s.opts.Interface(identity)

	if err := s.conn.Export(obj, path, iface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    iface,
				Methods: introspect.Methods(obj),
			},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := s.conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", name)
	}

	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()

	s.logger.Info("exported bus object", "name", name, "path", path)
	return nil
}

// Close releases every claimed bus name. The connection stays open.
func (s *Service) Close() error {
	s.mu.Lock()
	names := s.names
	s.names = nil
	s.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if _, err := s.conn.ReleaseName(name); err != nil {
			s.logger.Warn("failed to release bus name", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
