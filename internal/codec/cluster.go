package codec

import "cluster-service/internal/types"

// Cluster frame constants.
const (
	ClusterID       uint32 = 0x65
	ClusterDLC      uint8  = 3
	ClusterExtended bool   = false

	// MaxSpeed is the largest value the 12-bit speed field carries.
	MaxSpeed uint16 = 0x0FFF
)

// Bit layout of the Cluster payload.
//
//	byte 0: reserved, always zero
//	byte 1: bit 0 left turn, bits 1-7 speed bits 0-6
//	byte 2: bits 0-4 speed bits 7-11, bit 5 right turn
const (
	leftTurnMask  = 0x01
	speedLowMask  = 0x7F
	speedHighMask = 0x1F
	rightTurnBit  = 5
)

// Decode converts a raw payload into a sample. Bytes beyond length or
// beyond the slice read as zero, so every input yields a sample.
func Decode(data []byte, length uint8) types.Sample {
	b := func(i int) byte {
		if i >= int(length) || i >= len(data) {
			return 0
		}
		return data[i]
	}

	d1, d2 := b(1), b(2)
	speed := uint16(d2&speedHighMask)<<7 | uint16((d1>>1)&speedLowMask)

	return types.Sample{
		Speed:     speed,
		LeftTurn:  d1&leftTurnMask != 0,
		RightTurn: (d2>>rightTurnBit)&1 != 0,
	}
}

// Encode packs a sample into a Cluster payload. Speed is clamped to MaxSpeed.
func Encode(s types.Sample) (data [8]byte, length uint8, extended bool) {
	speed := s.Speed
	if speed > MaxSpeed {
		speed = MaxSpeed
	}

	data[1] = byte(speed&speedLowMask) << 1
	if s.LeftTurn {
		data[1] |= leftTurnMask
	}
	data[2] = byte(speed>>7) & speedHighMask
	if s.RightTurn {
		data[2] |= 1 << rightTurnBit
	}

	return data, ClusterDLC, ClusterExtended
}
