package band

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/migui/internal/broker"
)

// Remote DeviceManager methods.
const (
	MethodDiscover = "Discover"
	MethodRead     = "Read"
	MethodWrite    = "Write"
)

// DefaultDiscoverTimeout is how long the manager scans for bands.
const DefaultDiscoverTimeout = 3 * time.Second

type discoverRequest struct {
	TimeoutMS int64 `json:"timeout_ms"`
}

type readRequest struct {
	Address string `json:"address"`
	UUID    string `json:"uuid"`
}

type writeRequest struct {
	Address string `json:"address"`
	Handle  uint16 `json:"handle"`
	Data    []byte `json:"data"`
}

// Manager is a typed client for the remote DeviceManager.
type Manager struct {
	proxy           broker.Proxy
	discoverTimeout time.Duration
}

// NewManager wraps the DeviceManager proxy.
func NewManager(proxy broker.Proxy) *Manager {
	return &Manager{proxy: proxy, discoverTimeout: DefaultDiscoverTimeout}
}

// SetDiscoverTimeout changes the scan duration used by Devices.
func (m *Manager) SetDiscoverTimeout(d time.Duration) {
	if d > 0 {
		m.discoverTimeout = d
	}
}

// Devices scans for bands in range.
func (m *Manager) Devices(ctx context.Context) ([]Device, error) {
	var devices []Device
	req := discoverRequest{TimeoutMS: m.discoverTimeout.Milliseconds()}
	if err := m.proxy.Invoke(ctx, MethodDiscover, req, &devices); err != nil {
		return nil, fmt.Errorf("failed to discover devices: %w", err)
	}
	return devices, nil
}

func (m *Manager) read(ctx context.Context, address, uuid string) ([]byte, error) {
	var data []byte
	if err := m.proxy.Invoke(ctx, MethodRead, readRequest{Address: address, UUID: uuid}, &data); err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", uuid, address, err)
	}
	return data, nil
}

func (m *Manager) write(ctx context.Context, address string, handle uint16, data []byte) error {
	req := writeRequest{Address: address, Handle: handle, Data: data}
	if err := m.proxy.Invoke(ctx, MethodWrite, req, nil); err != nil {
		return fmt.Errorf("failed to write handle %#x on %s: %w", handle, address, err)
	}
	return nil
}

// Name reads the device name from the band.
func (m *Manager) Name(ctx context.Context, address string) (string, error) {
	data, err := m.read(ctx, address, UUIDDeviceName)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Battery reads the battery characteristic.
func (m *Manager) Battery(ctx context.Context, address string) (BatteryInfo, error) {
	data, err := m.read(ctx, address, UUIDBattery)
	if err != nil {
		return BatteryInfo{}, err
	}
	return ParseBatteryInfo(data)
}

// DeviceInfo reads the device info characteristic.
func (m *Manager) DeviceInfo(ctx context.Context, address string) (DeviceInfo, error) {
	data, err := m.read(ctx, address, UUIDDeviceInfo)
	if err != nil {
		return DeviceInfo{}, err
	}
	return ParseDeviceInfo(data)
}

// Steps reads the step counter.
func (m *Manager) Steps(ctx context.Context, address string) (int, error) {
	data, err := m.read(ctx, address, UUIDSteps)
	if err != nil {
		return 0, err
	}
	return ParseSteps(data)
}

// LEParams reads the connection parameters.
func (m *Manager) LEParams(ctx context.Context, address string) (LEParams, error) {
	data, err := m.read(ctx, address, UUIDLEParams)
	if err != nil {
		return LEParams{}, err
	}
	return ParseLEParams(data)
}

// FlashLEDs flashes the LEDs with brightness levels 1..6 per channel.
func (m *Manager) FlashLEDs(ctx context.Context, address string, r, g, b int) error {
	payload, err := FlashLEDsPayload(r, g, b)
	if err != nil {
		return err
	}
	return m.write(ctx, address, HandleControlPoint, payload)
}

// Locate makes the band vibrate.
func (m *Manager) Locate(ctx context.Context, address string) error {
	return m.write(ctx, address, HandleControlPoint, LocatePayload())
}

// SelfTest starts the band self test.
func (m *Manager) SelfTest(ctx context.Context, address string) error {
	return m.write(ctx, address, HandleTest, SelfTestPayload())
}

// Pair requests pairing.
func (m *Manager) Pair(ctx context.Context, address string) error {
	return m.write(ctx, address, HandlePair, PairPayload())
}

// SetUserInfo writes the wearer profile.
func (m *Manager) SetUserInfo(ctx context.Context, address string, info UserInfo) error {
	record, err := info.Encode(address)
	if err != nil {
		return err
	}
	return m.write(ctx, address, HandleUserInfo, record)
}

// Status is a device with its battery state. Err is set when the battery
// could not be read.
type Status struct {
	Device  `yaml:",inline"`
	Battery *BatteryInfo `json:"battery,omitempty" yaml:"battery,omitempty"`
	Err     string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Survey discovers devices and reads each battery. Per-device read
// failures are reported in Status.Err.
func (m *Manager) Survey(ctx context.Context) ([]Status, error) {
	devices, err := m.Devices(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(devices))
	for _, d := range devices {
		st := Status{Device: d}
		battery, err := m.Battery(ctx, d.Address)
		if err != nil {
			st.Err = err.Error()
		} else {
			st.Battery = &battery
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
