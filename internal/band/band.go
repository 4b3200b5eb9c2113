// Package band decodes Mi Band characteristics and drives bands through
// the remote DeviceManager.
package band

// GATT characteristic UUIDs.
const (
	UUIDDeviceInfo = "0000ff01-0000-1000-8000-00805f9b34fb"
	UUIDDeviceName = "0000ff02-0000-1000-8000-00805f9b34fb"
	UUIDUserInfo   = "0000ff04-0000-1000-8000-00805f9b34fb"
	UUIDSteps      = "0000ff06-0000-1000-8000-00805f9b34fb"
	UUIDLEParams   = "0000ff09-0000-1000-8000-00805f9b34fb"
	UUIDBattery    = "0000ff0c-0000-1000-8000-00805f9b34fb"
)

// GATT write handles.
const (
	HandleTest         uint16 = 0x2e
	HandleUserInfo     uint16 = 0x19
	HandleControlPoint uint16 = 0x1b
	HandlePair         uint16 = 0x33
)

// Device is a band seen by the DeviceManager.
type Device struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
}
