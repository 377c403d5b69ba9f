// Package health implements the staleness watchdog for the sample stream.
package health

import (
	"sync"
	"time"

	"cluster-service/internal/types"
)

// DefaultThreshold is the sample age at which the stream counts as stale.
const DefaultThreshold = 1500 * time.Millisecond

// EventPusher accepts events from task context.
type EventPusher interface {
	Push(ev types.Event, timeout time.Duration) bool
}

// LastSeenSource reports when data was last published.
type LastSeenSource interface {
	LastSeen() (time.Time, bool)
}

type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor polls the last-seen timestamp and raises one StalenessTimeout
// per stale episode.
type Monitor struct {
	mu        sync.Mutex
	threshold time.Duration
	inTimeout bool
	now       func() time.Time
}

func New(threshold time.Duration, opts ...Option) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Monitor{threshold: threshold, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckTimeout returns true when this call detected a new stale episode and
// queued a StalenessTimeout. Until src has seen data it always returns false.
// A rejected push leaves the latch clear.
func (m *Monitor) CheckTimeout(q EventPusher, src LastSeenSource) bool {
	last, ok := src.LastSeen()
	if !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.now().Sub(last) < m.threshold {
		m.inTimeout = false
		return false
	}
	if m.inTimeout {
		return false
	}

	// latch only once the event is queued, so a full queue is retried
	if !q.Push(types.StalenessTimeout{}, 0) {
		return false
	}
	m.inTimeout = true
	return true
}

// Reset clears the latch.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.inTimeout = false
	m.mu.Unlock()
}

func (m *Monitor) SetThreshold(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = d
	m.mu.Unlock()
}

func (m *Monitor) Threshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

func (m *Monitor) InTimeout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inTimeout
}
