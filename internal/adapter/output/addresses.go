package output

import (
	"fmt"
	"io"
)

// AddressesFormatter outputs just the device addresses, one per line.
// Useful for piping to other commands.
type AddressesFormatter struct{}

// NewAddressesFormatter creates a new addresses formatter.
func NewAddressesFormatter() *AddressesFormatter {
	return &AddressesFormatter{}
}

// Format writes device addresses to the writer, one per line.
func (f *AddressesFormatter) Format(w io.Writer, s Snapshot) error {
	for _, d := range s.Devices {
		if _, err := fmt.Fprintln(w, d.Address); err != nil {
			return err
		}
	}
	return nil
}
