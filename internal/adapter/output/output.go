// Package output provides output formatters for bootstrap snapshots.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/jmylchreest/migui/internal/band"
	"github.com/jmylchreest/migui/internal/broker"
)

// ManagerInfo describes the attached DeviceManager proxy.
type ManagerInfo struct {
	Identity  string `json:"identity" yaml:"identity"`
	Transport string `json:"transport" yaml:"transport"`
}

// Snapshot is the application state at one point in time.
type Snapshot struct {
	Phase   string        `json:"phase" yaml:"phase"`
	Manager *ManagerInfo  `json:"manager,omitempty" yaml:"manager,omitempty"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
	Devices []band.Status `json:"devices,omitempty" yaml:"devices,omitempty"`
	TakenAt time.Time     `json:"taken_at" yaml:"taken_at"`
}

// NewSnapshot builds a snapshot. proxy and err may be nil.
func NewSnapshot(phase string, proxy broker.Proxy, err error, devices []band.Status) Snapshot {
	s := Snapshot{
		Phase:   phase,
		Devices: devices,
		TakenAt: time.Now(),
	}
	if proxy != nil {
		s.Manager = &ManagerInfo{Identity: proxy.Identity(), Transport: proxy.Transport()}
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// Formatter formats snapshots for output.
type Formatter interface {
	// Format writes the formatted snapshot to the writer.
	Format(w io.Writer, s Snapshot) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain     FormatType = "plain"
	FormatJSON      FormatType = "json"
	FormatYAML      FormatType = "yaml"
	FormatAddresses FormatType = "addresses"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	switch f := FormatType(s); f {
	case FormatPlain, FormatJSON, FormatYAML, FormatAddresses:
		return f, nil
	case "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("unknown output format %q (plain, json, yaml, addresses)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatAddresses:
		return NewAddressesFormatter(), nil
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template    string // Custom per-device template for plain format
	ShowDevices bool   // Include the device table in plain output
}

// DefaultFormatterOptions returns sensible defaults for plain output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{ShowDevices: true}
}
