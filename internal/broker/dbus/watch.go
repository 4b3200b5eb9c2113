package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// OwnerEvent reports that an object appeared on or vanished from the bus.
type OwnerEvent struct {
	Identity string
	Present  bool
}

// WatchOwner streams ownership changes of identity's bus name until ctx
// is cancelled. The channel is closed when watching stops.
func WatchOwner(ctx context.Context, conn *dbus.Conn, opts Options, identity string) (<-chan OwnerEvent, error) {
	opts = opts.withDefaults()
	name := opts.BusName(identity)

	matches := []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	}
	if err := conn.AddMatchSignalContext(ctx, matches...); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	events := make(chan OwnerEvent, 4)
	go func() {
		defer close(events)
		defer func() {
			conn.RemoveSignal(signals)
			_ = conn.RemoveMatchSignal(matches...)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				ev, ok := ownerEvent(sig, name, identity)
				if !ok {
					continue
				}
				opts.Logger.Debug("bus owner changed", "name", name, "present", ev.Present)
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// ownerEvent decodes a NameOwnerChanged(name, old, new) signal.
func ownerEvent(sig *dbus.Signal, name, identity string) (OwnerEvent, bool) {
	if sig == nil || sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) < 3 {
		return OwnerEvent{}, false
	}
	changed, ok := sig.Body[0].(string)
	if !ok || changed != name {
		return OwnerEvent{}, false
	}
	newOwner, ok := sig.Body[2].(string)
	if !ok {
		return OwnerEvent{}, false
	}
	return OwnerEvent{Identity: identity, Present: newOwner != ""}, true
}
