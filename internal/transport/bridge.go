package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cluster-service/internal/codec"
	"cluster-service/internal/logger"
	"cluster-service/internal/types"
)

// Sink accepts events from the bus reader. PushFromInterrupt must not block.
type Sink interface {
	PushFromInterrupt(ev types.Event) bool
}

// Opener opens the bus, e.g. OpenSocketCAN.
type Opener func(iface string) (Bus, error)

// SocketCANOpener opens a raw CAN socket.
func SocketCANOpener(iface string) (Bus, error) {
	return OpenSocketCAN(iface)
}

// retryDelay paces the reader after a receive error.
const retryDelay = 50 * time.Millisecond

// Stats counts frames seen by the bridge.
type Stats struct {
	Accepted uint64
	Ignored  uint64
	Dropped  uint64
}

// Bridge reads frames from the bus, validates and decodes them and pushes
// sample events into the sink.
type Bridge struct {
	iface  string
	filter Filter
	open   Opener
	push   func(types.Event) bool
	logger *logger.Logger

	bus Bus
	wg  sync.WaitGroup

	accepted atomic.Uint64
	ignored  atomic.Uint64
	dropped  atomic.Uint64
}

// NewBridge binds sink at construction so the reader calls it directly.
func NewBridge(iface string, frameID uint32, open Opener, sink Sink, l *logger.Logger) *Bridge {
	return &Bridge{
		iface: iface,
		filter: Filter{
			ID:       frameID,
			MinLen:   codec.ClusterDLC,
			Extended: codec.ClusterExtended,
		},
		open:   open,
		push:   sink.PushFromInterrupt,
		logger: l,
	}
}

// Init opens the bus and starts the reader. The reader stops when ctx is
// done or the bridge is closed.
func (b *Bridge) Init(ctx context.Context) error {
	bus, err := b.open(b.iface)
	if err != nil {
		return fmt.Errorf("failed to open bus %s: %w", b.iface, err)
	}
	b.bus = bus
	b.logger.Infof("Listening on %s for frame 0x%X", b.iface, b.filter.ID)

	b.wg.Add(1)
	go b.readLoop(ctx)
	return nil
}

func (b *Bridge) readLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		f, err := b.bus.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				b.logger.Debugf("Reader on %s stopped", b.iface)
				return
			}
			b.logger.Warnf("Receive failed on %s: %v", b.iface, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		b.HandleFrame(f)
	}
}

// HandleFrame validates f, decodes it and pushes a SampleReceived event.
// Frames of other layouts are ignored silently.
func (b *Bridge) HandleFrame(f Frame) bool {
	if !b.filter.Accepts(f) {
		b.ignored.Add(1)
		return false
	}

	sample := codec.Decode(f.Data[:], f.Len)
	if !b.push(types.SampleReceived{Sample: sample}) {
		b.dropped.Add(1)
		return false
	}
	b.accepted.Add(1)
	return true
}

func (b *Bridge) Stats() Stats {
	return Stats{
		Accepted: b.accepted.Load(),
		Ignored:  b.ignored.Load(),
		Dropped:  b.dropped.Load(),
	}
}

// Close closes the bus and waits for the reader to exit.
func (b *Bridge) Close() error {
	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.wg.Wait()
	return err
}
