package fsm

import "github.com/librescoot/librefsm"

// Node states
const (
	StateBoot           librefsm.StateID = "boot"
	StateDisplayInit    librefsm.StateID = "display-init"
	StateWaitingForData librefsm.StateID = "waiting-for-data"
	StateActive         librefsm.StateID = "active"
	StateDegraded       librefsm.StateID = "degraded"
	StateFault          librefsm.StateID = "fault"
)

// Node events
const (
	// Boot sequence steps
	EvBootOk       librefsm.EventID = "boot-ok"
	EvDisplayReady librefsm.EventID = "display-ready"

	// Runtime
	EvSample librefsm.EventID = "sample"
	EvStale  librefsm.EventID = "stale"

	// Init failure or explicit error, always fatal
	EvFault librefsm.EventID = "fault"
)

// AllStates lists every state in declaration order.
var AllStates = []librefsm.StateID{
	StateBoot,
	StateDisplayInit,
	StateWaitingForData,
	StateActive,
	StateDegraded,
	StateFault,
}
