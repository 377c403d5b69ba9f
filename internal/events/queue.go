// Package events provides the bounded FIFO that hands events from the bus
// reader to the dispatch loop.
package events

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"cluster-service/internal/types"
)

var ErrZeroCapacity = errors.New("events: zero capacity")

// Queue is a fixed-capacity FIFO of events. Pushes from the reader side
// never block; the consumer side may wait with a timeout.
type Queue struct {
	ch      chan types.Event
	dropped atomic.Uint64
}

// New allocates a queue holding at most capacity events.
func New(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &Queue{ch: make(chan types.Event, capacity)}, nil
}

// PushFromInterrupt enqueues ev without blocking. It returns false and
// drops the event when the queue is full.
func (q *Queue) PushFromInterrupt(ev types.Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Push enqueues ev from task context, waiting up to timeout for space.
// A zero timeout does not wait.
func (q *Queue) Push(ev types.Event, timeout time.Duration) bool {
	if timeout <= 0 {
		return q.PushFromInterrupt(ev)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.ch <- ev:
		return true
	case <-timer.C:
		q.dropped.Add(1)
		return false
	}
}

// Pop waits up to timeout for the next event. A zero timeout polls.
// It returns false when no event arrived in time or ctx is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (types.Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
	}
	if timeout <= 0 {
		return nil, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-q.ch:
		return ev, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped reports how many events were lost to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
