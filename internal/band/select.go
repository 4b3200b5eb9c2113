package band

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoDevice is returned when a selector matches no band.
	ErrNoDevice = errors.New("no matching device")
	// ErrAmbiguous is returned when a name selector matches several bands.
	ErrAmbiguous = errors.New("selector matches more than one device")
)

// SortField is a column statuses can be ordered by.
type SortField string

const (
	SortByName    SortField = "name"
	SortByAddress SortField = "address"
	SortByBattery SortField = "battery"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions orders bands by name.
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByName, Order: SortAsc}
}

// SortStatuses sorts statuses in place. Bands without a battery
// reading sort below every band that has one.
func SortStatuses(statuses []Status, opts SortOptions) {
	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		var less bool

		switch opts.Field {
		case SortByAddress:
			less = strings.ToLower(a.Address) < strings.ToLower(b.Address)
		case SortByBattery:
			less = batteryLevel(a) < batteryLevel(b)
		default:
			less = strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}

		if opts.Order == SortDesc {
			return !less && !equalKey(a, b, opts.Field)
		}
		return less
	})
}

func batteryLevel(s Status) int {
	if s.Battery == nil {
		return -1
	}
	return int(s.Battery.Level)
}

func equalKey(a, b Status, field SortField) bool {
	switch field {
	case SortByAddress:
		return strings.EqualFold(a.Address, b.Address)
	case SortByBattery:
		return batteryLevel(a) == batteryLevel(b)
	default:
		return strings.EqualFold(a.Name, b.Name)
	}
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "n":
		return SortByName, nil
	case "address", "addr", "a":
		return SortByAddress, nil
	case "battery", "b":
		return SortByBattery, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Search keeps the statuses whose name or address contains term,
// ignoring case.
func Search(statuses []Status, term string) []Status {
	if term == "" {
		return statuses
	}

	term = strings.ToLower(term)
	var result []Status
	for _, s := range statuses {
		if strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Address), term) {
			result = append(result, s)
		}
	}
	return result
}

// Lookup picks one device by 1-based index, exact address or name.
func Lookup(devices []Device, selector string) (Device, error) {
	selector = strings.TrimSpace(selector)

	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 1 || idx > len(devices) {
			return Device{}, fmt.Errorf("%w: index %d out of range (1-%d)", ErrNoDevice, idx, len(devices))
		}
		return devices[idx-1], nil
	}

	for _, d := range devices {
		if strings.EqualFold(d.Address, selector) {
			return d, nil
		}
	}

	var found []Device
	for _, d := range devices {
		if strings.EqualFold(d.Name, selector) {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return Device{}, fmt.Errorf("%w: %q", ErrNoDevice, selector)
	case 1:
		return found[0], nil
	default:
		return Device{}, fmt.Errorf("%w: %q", ErrAmbiguous, selector)
	}
}

// Select resolves a selector to a band address. Anything shaped like
// a MAC address is used as is and skips discovery.
func (m *Manager) Select(ctx context.Context, selector string) (string, error) {
	if _, err := net.ParseMAC(selector); err == nil {
		return selector, nil
	}

	devices, err := m.Devices(ctx)
	if err != nil {
		return "", err
	}
	d, err := Lookup(devices, selector)
	if err != nil {
		return "", err
	}
	return d.Address, nil
}
