// Package actuator turns the turn signal requests of the sample stream into
// phase-synchronised blinking outputs.
package actuator

import (
	"sync"
	"time"

	"cluster-service/internal/logger"
	"cluster-service/internal/types"
)

const (
	DefaultHalfPeriod = 500 * time.Millisecond
	DefaultFallback   = 1000 * time.Millisecond
)

// Outputs drives the two signal lines with concrete levels.
type Outputs interface {
	SetLevels(left, right int) error
}

type Option func(*Controller)

func WithHalfPeriod(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.halfPeriod = d
		}
	}
}

// WithFallback sets how long the controller honours the last request
// without fresh samples.
func WithFallback(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.fallback = d
		}
	}
}

func WithActiveHigh(activeHigh bool) Option {
	return func(c *Controller) { c.activeHigh = activeHigh }
}

// Controller receives samples from the router and is ticked by the
// dispatch loop. Output changes happen only in Update.
type Controller struct {
	mu         sync.Mutex
	out        Outputs
	logger     *logger.Logger
	halfPeriod time.Duration
	fallback   time.Duration
	activeHigh bool

	enabled  bool
	leftReq  bool
	rightReq bool
	lastSeen time.Time
	seen     bool
	syncDue  bool
	leftOn   bool
	rightOn  bool
	nextFlip time.Time
	appliedL bool
	appliedR bool
	applied  bool

	gate *statusGate
}

func New(out Outputs, l *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		out:        out,
		logger:     l,
		halfPeriod: DefaultHalfPeriod,
		fallback:   DefaultFallback,
		activeHigh: true,
		enabled:    true,
	}
	c.gate = &statusGate{c: c}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Receive records the requests of a sample. A rising request on either side
// schedules a phase sync for the next Update.
func (c *Controller) Receive(s types.Sample, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeen = ts
	c.seen = true

	left, right := s.LeftTurn, s.RightTurn
	if !c.enabled {
		left, right = false, false
	}

	if (left && !c.leftReq) || (right && !c.rightReq) {
		c.syncDue = true
	}
	c.leftReq, c.rightReq = left, right
}

// Update advances the blink timing to now and applies changed outputs.
func (c *Controller) Update(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// (a) stale requests are dropped
	if c.seen && now.Sub(c.lastSeen) > c.fallback && (c.leftReq || c.rightReq) {
		c.logger.Debugf("No sample for %v, dropping requests", now.Sub(c.lastSeen))
		c.leftReq, c.rightReq = false, false
	}
	requested := c.leftReq || c.rightReq

	switch {
	case c.syncDue:
		// (b) restart both sides in phase
		c.leftOn, c.rightOn = c.leftReq, c.rightReq
		c.nextFlip = now.Add(c.halfPeriod)
		c.syncDue = false
		c.apply()

	case requested && !now.Before(c.nextFlip):
		// (c) regular toggle
		c.leftOn = c.leftReq && !c.leftOn
		c.rightOn = c.rightReq && !c.rightOn
		c.nextFlip = now.Add(c.halfPeriod)
		c.apply()

	case !requested && (c.leftOn || c.rightOn):
		// (d) force off once
		c.leftOn, c.rightOn = false, false
		c.apply()
	}
}

// apply writes the outputs when the on/off state changed.
func (c *Controller) apply() {
	if c.applied && c.appliedL == c.leftOn && c.appliedR == c.rightOn {
		return
	}

	l, r := Levels(c.leftOn, c.rightOn, c.activeHigh)
	if err := c.out.SetLevels(l, r); err != nil {
		c.logger.Warnf("Failed to set blinker outputs: %v", err)
		return
	}
	c.appliedL, c.appliedR, c.applied = c.leftOn, c.rightOn, true
}

// Outputs returns the current visible on/off state of both sides.
func (c *Controller) Outputs() (left, right bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leftOn, c.rightOn
}

// Requests returns the currently honoured requests.
func (c *Controller) Requests() (left, right bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leftReq, c.rightReq
}

// Levels maps on/off states to line levels for the given polarity.
func Levels(leftOn, rightOn, activeHigh bool) (left, right int) {
	level := func(on bool) int {
		if on == activeHigh {
			return 1
		}
		return 0
	}
	return level(leftOn), level(rightOn)
}
