package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cluster-service/internal/events"
	"cluster-service/internal/fsm"
	"cluster-service/internal/health"
	"cluster-service/internal/logger"
	"cluster-service/internal/router"
	"cluster-service/internal/types"
)

// DefaultTick bounds how long the dispatch loop waits for an event before
// running the periodic updates.
const DefaultTick = 10 * time.Millisecond

type Option func(*System)

// WithClock replaces time.Now for publish timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// WithTickers registers periodic consumers run on every loop iteration.
func WithTickers(t ...Ticker) Option {
	return func(s *System) { s.tickers = append(s.tickers, t...) }
}

// System owns the node state machine. Dispatch, Update and Run must be
// called from a single goroutine; the accessors are safe from any.
type System struct {
	queue     *events.Queue
	router    *router.Router
	monitor   *health.Monitor
	transport Transport
	presenter Presenter
	tickers   []Ticker
	logger    *logger.Logger
	now       func() time.Time

	machine stateMachine

	mu        sync.RWMutex
	state     types.SystemState
	pending   []types.SystemState
	bootSteps int
}

func NewSystem(
	queue *events.Queue,
	r *router.Router,
	monitor *health.Monitor,
	transport Transport,
	presenter Presenter,
	l *logger.Logger,
	opts ...Option,
) *System {
	s := &System{
		queue:     queue,
		router:    r,
		monitor:   monitor,
		transport: transport,
		presenter: presenter,
		logger:    l,
		now:       time.Now,
		state:     types.StateBoot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunBootSequence brings up the collaborators in order and leaves the
// machine in waiting-for-data. The first failing step raises InitFail,
// moves the machine to fault and aborts the remaining steps.
func (s *System) RunBootSequence(ctx context.Context) error {
	s.logger.Infof("Starting boot sequence")

	if err := s.startFSM(ctx); err != nil {
		return fmt.Errorf("failed to start state machine: %w", err)
	}
	if state := s.State(); state == types.StateFault {
		return fmt.Errorf("boot aborted: already in %s", state)
	}

	if err := s.transport.Init(ctx); err != nil {
		return s.bootFailed(types.SubsystemBus, fmt.Errorf("bus transport init failed: %w", err))
	}
	s.queue.Push(types.InitOk{Subsystem: types.SubsystemBus}, 0)
	s.sendEvent(fsm.EvBootOk)

	if err := s.presenter.Init(ctx); err != nil {
		return s.bootFailed(types.SubsystemDisplay, fmt.Errorf("display init failed: %w", err))
	}
	s.queue.Push(types.InitOk{Subsystem: types.SubsystemDisplay}, 0)

	if err := s.presenter.StartTask(ctx); err != nil {
		return s.bootFailed(types.SubsystemRenderer, fmt.Errorf("presentation task start failed: %w", err))
	}
	s.queue.Push(types.InitOk{Subsystem: types.SubsystemRenderer}, 0)

	s.present(types.ShowLog())
	s.present(types.AddLog("System booting..."))
	s.present(types.AddLog("Initializing display..."))

	s.sendEvent(fsm.EvDisplayReady)
	s.flushTransitions()

	s.logger.Infof("Boot sequence complete, state %s", s.State())
	return nil
}

func (s *System) bootFailed(sub types.Subsystem, err error) error {
	s.logger.Errorf("%v", err)
	s.queue.Push(types.InitFail{Subsystem: sub}, 0)
	s.fail(fmt.Sprintf("init failure: %s", sub))
	return err
}

// Run drains the queue until ctx is done. Every iteration dispatches at
// most one event, then runs Update and the registered tickers.
func (s *System) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = DefaultTick
	}
	s.logger.Infof("Dispatch loop started (tick %v)", tick)

	for {
		if ev, ok := s.queue.Pop(ctx, tick); ok {
			s.Dispatch(ev)
		}
		if ctx.Err() != nil {
			s.logger.Infof("Dispatch loop stopped")
			return ctx.Err()
		}

		s.Update()
		now := s.now()
		for _, t := range s.tickers {
			t.Update(now)
		}
	}
}

// Update runs the staleness watchdog while data is expected.
func (s *System) Update() {
	s.flushTransitions()

	switch s.State() {
	case types.StateActive, types.StateDegraded:
		if s.monitor.CheckTimeout(s.queue, s.router.Samples) {
			s.logger.Warnf("Sample stream stale")
		}
	}
}

// State returns the current state.
func (s *System) State() types.SystemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns the snapshot of the current state.
func (s *System) Status() types.StatusSnapshot {
	return types.SnapshotFor(s.State())
}

// BootStepsCompleted counts the InitOk events dispatched so far.
func (s *System) BootStepsCompleted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootSteps
}

func (s *System) present(cmd types.UICommand) {
	if !s.presenter.Enqueue(cmd) {
		s.logger.Debugf("Presentation queue full, dropped %s", cmd.Kind)
	}
}
