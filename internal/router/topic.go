// Package router implements typed publish/subscribe topics with a sticky
// last-value cache.
package router

import (
	"errors"
	"reflect"
	"sync"
	"time"
)

var (
	ErrZeroCapacity      = errors.New("router: zero subscriber capacity")
	ErrNilSubscriber     = errors.New("router: nil subscriber")
	ErrNotComparable     = errors.New("router: subscriber is not comparable")
	ErrCapacityExhausted = errors.New("router: subscriber capacity exhausted")
)

// Subscriber receives every value published on a topic it is registered on.
// The subscriber value itself is the subscription identity, so it must
// support ==. Pointer receivers always do; struct values holding slices,
// maps or funcs, directly or behind an interface field, are rejected.
type Subscriber[T any] interface {
	Receive(msg T, ts time.Time)
}

// SubscriberFunc adapts a function to Subscriber. Function values are not
// comparable, so wrap it in a pointer (&fn) before subscribing.
type SubscriberFunc[T any] func(msg T, ts time.Time)

func (f *SubscriberFunc[T]) Receive(msg T, ts time.Time) { (*f)(msg, ts) }

// Topic is a single typed channel with a bounded, insertion-ordered
// subscriber list.
//
// Subscribe, Unsubscribe and Publish are meant to be called from one task.
// Last and LastSeen may be called from any goroutine.
type Topic[T any] struct {
	mu      sync.RWMutex
	subs    []Subscriber[T]
	scratch []Subscriber[T]
	depth   int

	last   T
	lastTs time.Time
	has    bool
}

// NewTopic allocates subscriber storage for at most maxSubscribers entries.
func NewTopic[T any](maxSubscribers int) (*Topic[T], error) {
	if maxSubscribers <= 0 {
		return nil, ErrZeroCapacity
	}
	return &Topic[T]{
		subs:    make([]Subscriber[T], 0, maxSubscribers),
		scratch: make([]Subscriber[T], 0, maxSubscribers),
	}, nil
}

// Subscribe registers s. Registering the same subscriber twice is a no-op.
func (t *Topic[T]) Subscribe(s Subscriber[T]) error {
	if s == nil {
		return ErrNilSubscriber
	}
	if !isComparable(s) {
		return ErrNotComparable
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexOf(s) >= 0 {
		return nil
	}
	if len(t.subs) == cap(t.subs) {
		return ErrCapacityExhausted
	}
	t.subs = append(t.subs, s)
	return nil
}

// Unsubscribe removes s, keeping the order of the remaining subscribers.
func (t *Topic[T]) Unsubscribe(s Subscriber[T]) {
	if s == nil || !isComparable(s) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(s)
	if i < 0 {
		return
	}
	copy(t.subs[i:], t.subs[i+1:])
	t.subs[len(t.subs)-1] = nil
	t.subs = t.subs[:len(t.subs)-1]
}

// isComparable reports whether s can be compared with ==. Interface fields
// are only checked at runtime, so the value is compared with itself.
func isComparable[T any](s Subscriber[T]) (ok bool) {
	if !reflect.TypeOf(s).Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s == s
}

func (t *Topic[T]) indexOf(s Subscriber[T]) int {
	for i, sub := range t.subs {
		if sub == s {
			return i
		}
	}
	return -1
}

// Publish stores v as the sticky value and delivers it to every subscriber
// in registration order before returning. Subscribers may subscribe or
// unsubscribe during delivery; changes take effect on the next publish.
func (t *Topic[T]) Publish(v T, ts time.Time) {
	t.mu.Lock()
	t.last, t.lastTs, t.has = v, ts, true

	var targets []Subscriber[T]
	if t.depth == 0 {
		t.scratch = append(t.scratch[:0], t.subs...)
		targets = t.scratch
	} else {
		// nested publish from a callback; the scratch slice is in use
		targets = append([]Subscriber[T](nil), t.subs...)
	}
	t.depth++
	t.mu.Unlock()

	for _, s := range targets {
		s.Receive(v, ts)
	}

	t.mu.Lock()
	t.depth--
	if t.depth == 0 {
		clear(t.scratch)
	}
	t.mu.Unlock()
}

// Last returns the most recently published value and its timestamp.
func (t *Topic[T]) Last() (T, time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.lastTs, t.has
}

// LastSeen returns the timestamp of the most recent publish.
func (t *Topic[T]) LastSeen() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTs, t.has
}

func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (t *Topic[T]) Cap() int {
	return cap(t.subs)
}
