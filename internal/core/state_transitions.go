package core

import (
	"fmt"

	"cluster-service/internal/fsm"
	"cluster-service/internal/types"
)

// Dispatch handles one queued event. It never blocks on I/O.
func (s *System) Dispatch(ev types.Event) {
	switch e := ev.(type) {
	case types.InitOk:
		s.mu.Lock()
		s.bootSteps++
		steps := s.bootSteps
		s.mu.Unlock()
		s.logger.Debugf("Init ok: %s (%d steps)", e.Subsystem, steps)

	case types.InitFail:
		s.fail(fmt.Sprintf("init failure: %s", e.Subsystem))

	case types.Error:
		s.fail(fmt.Sprintf("error code %d", e.Code))

	case types.SampleReceived:
		s.handleSample(e.Sample)

	case types.StalenessTimeout:
		if s.State() == types.StateActive {
			s.sendEvent(fsm.EvStale)
		} else {
			s.logger.Debugf("Ignoring staleness timeout in %s", s.State())
		}

	default:
		s.logger.Warnf("Unknown event %T", ev)
	}
}

// handleSample moves waiting-for-data and degraded to active, then
// publishes the sample. The status snapshot of the transition goes out
// before the sample.
func (s *System) handleSample(sample types.Sample) {
	switch s.State() {
	case types.StateWaitingForData, types.StateDegraded:
		s.sendEvent(fsm.EvSample)
	}
	s.router.Samples.Publish(sample, s.now())
}
