package band

import (
	"encoding/binary"
	"fmt"
	"time"
)

// DecodeError reports a characteristic payload that could not be decoded.
type DecodeError struct {
	Field string
	Want  int
	Got   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: payload too short: want %d bytes, got %d", e.Field, e.Want, e.Got)
}

func need(field string, data []byte, n int) error {
	if len(data) < n {
		return &DecodeError{Field: field, Want: n, Got: len(data)}
	}
	return nil
}

// BatteryStatus is the charging state reported by the band.
type BatteryStatus string

const (
	BatteryLow         BatteryStatus = "low"
	BatteryMedium      BatteryStatus = "medium"
	BatteryFull        BatteryStatus = "full"
	BatteryNotCharging BatteryStatus = "not charging"
	BatteryUnknown     BatteryStatus = "unknown"
)

func batteryStatus(b byte) BatteryStatus {
	switch b {
	case 1:
		return BatteryLow
	case 2:
		return BatteryMedium
	case 3:
		return BatteryFull
	case 4:
		return BatteryNotCharging
	default:
		return BatteryUnknown
	}
}

// BatteryInfo is the decoded battery characteristic.
type BatteryInfo struct {
	Level         int           `json:"level" yaml:"level"`
	LastCharged   time.Time     `json:"last_charged" yaml:"last_charged"`
	ChargeCounter int           `json:"charge_counter" yaml:"charge_counter"`
	Status        BatteryStatus `json:"status" yaml:"status"`
}

// ParseBatteryInfo decodes the battery characteristic. The last charge
// time is in the band's local time.
func ParseBatteryInfo(data []byte) (BatteryInfo, error) {
	if err := need("battery", data, 10); err != nil {
		return BatteryInfo{}, err
	}
	return BatteryInfo{
		Level: int(data[0]),
		LastCharged: time.Date(
			int(data[1])+2000, time.Month(int(data[2])+1), int(data[3]),
			int(data[4]), int(data[5]), 0, 0, time.Local),
		ChargeCounter: int(binary.LittleEndian.Uint16(data[7:9])),
		Status:        batteryStatus(data[9]),
	}, nil
}

// LEParams are the band's Bluetooth LE connection parameters.
type LEParams struct {
	MinConnectionInterval int `json:"min_connection_interval" yaml:"min_connection_interval"`
	MaxConnectionInterval int `json:"max_connection_interval" yaml:"max_connection_interval"`
	Latency               int `json:"latency" yaml:"latency"`
	Timeout               int `json:"timeout" yaml:"timeout"`
	ConnectionInterval    int `json:"connection_interval" yaml:"connection_interval"`
	AdvertisementInterval int `json:"advertisement_interval" yaml:"advertisement_interval"`
}

// ParseLEParams decodes the LE params characteristic.
func ParseLEParams(data []byte) (LEParams, error) {
	if err := need("le params", data, 12); err != nil {
		return LEParams{}, err
	}
	u16 := func(i int) int { return int(binary.LittleEndian.Uint16(data[i : i+2])) }
	return LEParams{
		MinConnectionInterval: u16(0),
		MaxConnectionInterval: u16(2),
		Latency:               u16(4),
		Timeout:               u16(6),
		ConnectionInterval:    u16(8),
		AdvertisementInterval: u16(10),
	}, nil
}

// DeviceInfo is the decoded device info characteristic.
type DeviceInfo struct {
	FirmwareVersion string `json:"firmware_version" yaml:"firmware_version"`
}

// ParseDeviceInfo decodes the device info characteristic. The firmware
// version is stored in its last four bytes, least significant first.
func ParseDeviceInfo(data []byte) (DeviceInfo, error) {
	if err := need("device info", data, 4); err != nil {
		return DeviceInfo{}, err
	}
	v := data[len(data)-4:]
	return DeviceInfo{
		FirmwareVersion: fmt.Sprintf("%d.%d.%d.%d", v[3], v[2], v[1], v[0]),
	}, nil
}

// ParseSteps decodes the step counter.
func ParseSteps(data []byte) (int, error) {
	if err := need("steps", data, 2); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(data[:2])), nil
}
