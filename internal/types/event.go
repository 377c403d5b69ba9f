package types

import "fmt"

// Subsystem identifies the collaborator an init or error event concerns.
type Subsystem uint8

const (
	SubsystemBus Subsystem = iota
	SubsystemDisplay
	SubsystemInput
	SubsystemRenderer
	SubsystemPresentation
)

var subsystemNames = [...]string{
	SubsystemBus:          "bus",
	SubsystemDisplay:      "display",
	SubsystemInput:        "input",
	SubsystemRenderer:     "renderer",
	SubsystemPresentation: "presentation",
}

func (s Subsystem) String() string {
	if int(s) < len(subsystemNames) {
		return subsystemNames[s]
	}
	return fmt.Sprintf("subsystem(%d)", uint8(s))
}

// ParseSubsystem maps a subsystem name back to its value.
func ParseSubsystem(name string) (Subsystem, error) {
	for i, n := range subsystemNames {
		if n == name {
			return Subsystem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown subsystem: %q", name)
}

// Sample is one decoded Cluster frame.
type Sample struct {
	Speed     uint16 // 12-bit raw value, 0..4095
	LeftTurn  bool
	RightTurn bool
}

// Event is a queued notification for the system controller.
// The set of variants is closed; read payloads with a type switch.
type Event interface {
	isEvent()
}

type InitOk struct {
	Subsystem Subsystem
}

type InitFail struct {
	Subsystem Subsystem
}

type SampleReceived struct {
	Sample Sample
}

type StalenessTimeout struct{}

type Error struct {
	Code uint32
}

func (InitOk) isEvent()           {}
func (InitFail) isEvent()         {}
func (SampleReceived) isEvent()   {}
func (StalenessTimeout) isEvent() {}
func (Error) isEvent()            {}

func (e InitOk) String() string         { return "init-ok:" + e.Subsystem.String() }
func (e InitFail) String() string       { return "init-fail:" + e.Subsystem.String() }
func (e SampleReceived) String() string { return fmt.Sprintf("sample:%+v", e.Sample) }
func (StalenessTimeout) String() string { return "staleness-timeout" }
func (e Error) String() string          { return fmt.Sprintf("error:%d", e.Code) }
