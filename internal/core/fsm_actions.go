package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"cluster-service/internal/fsm"
	"cluster-service/internal/types"
)

// Ensure System implements fsm.Actions
var _ fsm.Actions = (*System)(nil)

// stateMachine is the subset of the librefsm machine the system drives.
type stateMachine interface {
	Start(ctx context.Context) error
	SendSync(ev librefsm.Event) error
	OnStateChange(fn func(from, to librefsm.StateID))
}

// stateIDToSystemState converts librefsm StateID to types.SystemState
func stateIDToSystemState(id librefsm.StateID) types.SystemState {
	switch id {
	case fsm.StateBoot:
		return types.StateBoot
	case fsm.StateDisplayInit:
		return types.StateDisplayInit
	case fsm.StateWaitingForData:
		return types.StateWaitingForData
	case fsm.StateActive:
		return types.StateActive
	case fsm.StateDegraded:
		return types.StateDegraded
	case fsm.StateFault:
		return types.StateFault
	default:
		return types.SystemState(string(id))
	}
}

// initFSM builds and starts the librefsm machine
func (s *System) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}

	// Mirror the state and queue the status publish. Never call back into
	// the machine from here: its mutex is held.
	machine.OnStateChange(func(from, to librefsm.StateID) {
		if from == "" || from == to {
			return
		}
		oldState := stateIDToSystemState(from)
		newState := stateIDToSystemState(to)

		s.mu.Lock()
		s.state = newState
		s.pending = append(s.pending, newState)
		s.mu.Unlock()

		s.logger.Infof("State transition: %s -> %s", oldState, newState)
	})

	if err := machine.Start(ctx); err != nil {
		return err
	}
	s.machine = machine

	s.logger.Infof("librefsm state machine started")
	return nil
}

// startFSM builds and starts the machine once. Events dispatched before
// the boot sequence start it on demand.
func (s *System) startFSM(ctx context.Context) error {
	if s.machine != nil {
		return nil
	}
	return s.initFSM(ctx)
}

// sendEvent sends an event to the FSM and publishes the resulting status.
func (s *System) sendEvent(event librefsm.EventID) {
	if err := s.startFSM(context.Background()); err != nil {
		s.logger.Errorf("Failed to start state machine, dropping %s: %v", event, err)
		return
	}
	if err := s.machine.SendSync(librefsm.Event{ID: event}); err != nil {
		s.logger.Debugf("Event %s not handled in %s: %v", event, s.State(), err)
	}
	s.flushTransitions()
}

// fail escalates to fault. In fault it does nothing.
func (s *System) fail(reason string) {
	if s.State() == types.StateFault {
		s.logger.Debugf("Already in fault, ignoring %s", reason)
		return
	}
	s.logger.Errorf("Escalating to fault: %s", reason)
	s.sendEvent(fsm.EvFault)
}

// flushTransitions publishes one status snapshot per completed transition.
func (s *System) flushTransitions() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, state := range pending {
		s.router.Status.Publish(types.SnapshotFor(state), s.now())
	}
}

// === State Entry Actions ===

func (s *System) EnterDisplayInit(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterDisplayInit")
	return nil
}

func (s *System) EnterWaitingForData(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterWaitingForData")
	s.monitor.Reset()
	s.present(types.ShowLog())
	s.present(types.AddLog("Waiting for bus data..."))
	return nil
}

func (s *System) EnterActive(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterActive (from %s)", stateIDToSystemState(c.FromState))
	s.present(types.ShowPrimary())
	return nil
}

func (s *System) EnterDegraded(c *librefsm.Context) error {
	s.logger.Warnf("Stale data detected")
	s.present(types.ShowDegraded())
	s.present(types.ShowLog())
	s.present(types.AddLog("WARNING: Stale data detected"))
	return nil
}

func (s *System) EnterFault(c *librefsm.Context) error {
	s.logger.Errorf("FAULT: system halted (from %s)", stateIDToSystemState(c.FromState))
	s.present(types.ShowFault())
	s.present(types.ShowLog())
	s.present(types.AddLog("FAULT: System halted"))
	return nil
}
