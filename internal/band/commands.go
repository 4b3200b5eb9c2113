package band

import (
	"errors"
	"fmt"
)

// LED brightness bounds.
const (
	MinLEDLevel = 1
	MaxLEDLevel = 6
)

// ErrLEDLevel is returned for brightness levels outside 1..6.
var ErrLEDLevel = errors.New("led level out of range")

// FlashLEDsPayload returns the control point command flashing the LEDs
// with per-channel brightness levels.
func FlashLEDsPayload(r, g, b int) ([]byte, error) {
	for _, v := range []int{r, g, b} {
		if v < MinLEDLevel || v > MaxLEDLevel {
			return nil, fmt.Errorf("%w: %d", ErrLEDLevel, v)
		}
	}
	return []byte{0x0e, byte(r), byte(g), byte(b), 0x01}, nil
}

// LocatePayload returns the control point command that makes the band vibrate.
func LocatePayload() []byte {
	return []byte{0x08, 0x00}
}

// SelfTestPayload returns the command written to HandleTest.
func SelfTestPayload() []byte {
	return []byte{0x02}
}

// PairPayload returns the command written to HandlePair.
func PairPayload() []byte {
	return []byte{0x02}
}
