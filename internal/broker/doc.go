// Package broker resolves stringified object references into remote proxies.
//
// A reference has the form "<identity> -w <transport>", for example
// "DeviceManager -w ws". The transport name selects a registered Resolver,
// which contacts the remote side and returns a Proxy. Resolution is
// asynchronous: StringToProxy returns a Future that settles exactly once.
package broker
