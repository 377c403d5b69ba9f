package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the node FSM definition.
// Fault is terminal: it has no outgoing transitions.
func NewDefinition(actions Actions) *librefsm.Definition {
	def := librefsm.NewDefinition().
		State(StateBoot).
		State(StateDisplayInit,
			librefsm.WithOnEnter(actions.EnterDisplayInit),
		).
		State(StateWaitingForData,
			librefsm.WithOnEnter(actions.EnterWaitingForData),
		).
		State(StateActive,
			librefsm.WithOnEnter(actions.EnterActive),
		).
		State(StateDegraded,
			librefsm.WithOnEnter(actions.EnterDegraded),
		).
		State(StateFault,
			librefsm.WithOnEnter(actions.EnterFault),
		).

		// Boot sequence
		Transition(StateBoot, EvBootOk, StateDisplayInit).
		Transition(StateDisplayInit, EvDisplayReady, StateWaitingForData).

		// Data flow
		Transition(StateWaitingForData, EvSample, StateActive).
		Transition(StateDegraded, EvSample, StateActive).
		Transition(StateActive, EvStale, StateDegraded)

	// Every state except fault escalates
	for _, s := range AllStates {
		if s == StateFault {
			continue
		}
		def = def.Transition(s, EvFault, StateFault)
	}

	return def.Initial(StateBoot)
}
