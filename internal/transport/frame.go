// Package transport receives raw frames from the vehicle bus and turns the
// accepted ones into queued sample events.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var ErrClosed = errors.New("transport: closed")

// MaxDataLen is the payload size of a classic bus frame.
const MaxDataLen = 8

// Frame is a classic bus frame.
type Frame struct {
	ID       uint32
	Len      uint8
	Extended bool
	Data     [MaxDataLen]byte
}

func (f Frame) String() string {
	format := "std"
	if f.Extended {
		format = "ext"
	}
	n := int(f.Len)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return fmt.Sprintf("%03X#%X (%s, len %d)", f.ID, f.Data[:n], format, f.Len)
}

// Bus sends and receives frames. Receive blocks until a frame arrives,
// ctx is done or the bus is closed.
type Bus interface {
	Receive(ctx context.Context) (Frame, error)
	Send(f Frame) error
	Close() error
}

// Filter describes the one frame layout a bridge accepts.
type Filter struct {
	ID       uint32
	MinLen   uint8
	Extended bool
}

// Accepts reports whether f has the expected identifier, at least the
// expected length and the expected format.
func (flt Filter) Accepts(f Frame) bool {
	return f.ID == flt.ID && f.Len >= flt.MinLen && f.Extended == flt.Extended
}
