package types

type SystemState string

const (
	StateBoot           SystemState = "boot"
	StateDisplayInit    SystemState = "display-init"
	StateWaitingForData SystemState = "waiting-for-data"
	StateActive         SystemState = "active"
	StateDegraded       SystemState = "degraded"
	StateFault          SystemState = "fault"
)

// Code returns the numeric state code used on register-based interfaces.
func (s SystemState) Code() uint16 {
	switch s {
	case StateBoot:
		return 0
	case StateDisplayInit:
		return 1
	case StateWaitingForData:
		return 2
	case StateActive:
		return 3
	case StateDegraded:
		return 4
	case StateFault:
		return 5
	default:
		return 0xFFFF
	}
}

// StatusSnapshot is published on the status topic on every state transition.
type StatusSnapshot struct {
	State          SystemState
	OutputsEnabled bool
}

// SnapshotFor derives the status snapshot of a state.
// Outputs are enabled only while data is flowing or recently was.
func SnapshotFor(s SystemState) StatusSnapshot {
	return StatusSnapshot{
		State:          s,
		OutputsEnabled: s == StateActive || s == StateDegraded,
	}
}
