// Package dbus implements the "dbus" broker transport. Objects are
// published on a message bus under a common name prefix and reached
// through godbus object proxies.
package dbus
