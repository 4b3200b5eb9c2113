// Package bootstrap wires the device manager proxy into the root scope.
//
// A Bootstrapper runs once per application start:
//
//  1. set the log threshold to info
//  2. look up the root state bound to "MiguiApp"
//  3. ask the broker for "DeviceManager -w ws"
//  4. bind the proxy to the root state's manager field, or report the failure
//
// Phases move Idle -> Resolving -> Attached or Failed and never leave a
// terminal phase.
package bootstrap
