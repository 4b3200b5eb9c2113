package band

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// AliasLen is the fixed alias length in a user info record.
const AliasLen = 10

var (
	// ErrAliasLength is returned when an alias is not exactly AliasLen bytes.
	ErrAliasLength = errors.New("alias must be 10 bytes")
	// ErrBadAddress is returned for addresses without a hex last octet.
	ErrBadAddress = errors.New("invalid device address")
)

// Gender of the band wearer.
type Gender uint8

const (
	Female Gender = 0
	Male   Gender = 1
)

// UserInfo is the wearer profile written to the band.
type UserInfo struct {
	UID    uint32
	Gender Gender
	Age    uint8
	Height uint8 // cm
	Weight uint8 // kg
	Type   uint8
	Alias  string
}

// Encode builds the 20-byte user info record for the band at address.
// The last byte is a CRC8 of the record salted with the address's last octet.
func (u UserInfo) Encode(address string) ([]byte, error) {
	if len(u.Alias) != AliasLen {
		return nil, fmt.Errorf("%w: got %d", ErrAliasLength, len(u.Alias))
	}
	salt, err := lastOctet(address)
	if err != nil {
		return nil, err
	}

	seq := make([]byte, 20)
	binary.LittleEndian.PutUint32(seq[:4], u.UID)
	if u.Gender != Female {
		seq[4] = 1
	}
	seq[5] = u.Age
	seq[6] = u.Height
	seq[7] = u.Weight
	seq[8] = u.Type
	copy(seq[9:19], u.Alias)
	seq[19] = crc8(seq[:19]) ^ salt
	return seq, nil
}

// lastOctet reads the final two hex digits of address, whatever separator
// (if any) the address uses.
func lastOctet(address string) (byte, error) {
	if len(address) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadAddress, address)
	}
	v, err := strconv.ParseUint(address[len(address)-2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadAddress, address)
	}
	return byte(v), nil
}

// crc8 is the reflected CRC-8 with polynomial 0x8c used by the band.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x01 != 0 {
				crc = (crc >> 1) ^ 0x8c
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
