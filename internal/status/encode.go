package status

import "cluster-service/internal/types"

// HealthFor maps a node state onto a health code.
func HealthFor(s types.SystemState) uint16 {
	switch s {
	case types.StateActive:
		return HealthOK
	case types.StateDegraded:
		return HealthStale
	case types.StateFault:
		return HealthError
	default:
		return HealthUnknown
	}
}

// Encode converts a snapshot into the status block.
// transitions saturates at 65535.
func Encode(s types.StatusSnapshot, transitions uint64) []uint16 {
	regs := make([]uint16, BlockSize)

	regs[SlotHealthCode] = HealthFor(s.State)
	regs[SlotStateCode] = s.State.Code()
	if s.OutputsEnabled {
		regs[SlotOutputs] = 1
	}
	if transitions > 0xFFFF {
		transitions = 0xFFFF
	}
	regs[SlotTransitions] = uint16(transitions)

	return regs
}

// DisabledBlock is written when the mirror shuts down.
func DisabledBlock() []uint16 {
	regs := make([]uint16, BlockSize)
	regs[SlotHealthCode] = HealthDisabled
	return regs
}
