package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluster-service/internal/logger"
	"cluster-service/internal/types"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		state types.SystemState
		want  []uint16
	}{
		{types.StateBoot, []uint16{HealthUnknown, 0, 0, 1}},
		{types.StateWaitingForData, []uint16{HealthUnknown, 2, 0, 1}},
		{types.StateActive, []uint16{HealthOK, 3, 1, 1}},
		{types.StateDegraded, []uint16{HealthStale, 4, 1, 1}},
		{types.StateFault, []uint16{HealthError, 5, 0, 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Encode(types.SnapshotFor(tt.state), 1), string(tt.state))
	}
}

func TestEncodeSaturatesTransitions(t *testing.T) {
	regs := Encode(types.SnapshotFor(types.StateActive), 1<<20)
	assert.Equal(t, uint16(0xFFFF), regs[SlotTransitions])
}

func TestPackRegisters(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0xFF}, packRegisters([]uint16{0x0102, 0x00FF}))
}

type fakeWriter struct {
	mu     sync.Mutex
	blocks [][]uint16
	err    error
}

func (f *fakeWriter) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.blocks = append(f.blocks, append([]uint16(nil), regs...))
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) snapshot() [][]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]uint16(nil), f.blocks...)
}

func TestMirror(t *testing.T) {
	w := &fakeWriter{}
	m := NewMirror(w, 1, 100, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	m.Receive(types.SnapshotFor(types.StateDisplayInit), time.Now())
	require.Eventually(t, func() bool { return len(w.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	m.Receive(types.SnapshotFor(types.StateActive), time.Now())
	require.Eventually(t, func() bool { return len(w.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint16{HealthOK, 3, 1, 2}, w.snapshot()[1])

	cancel()
	m.Wait()
	blocks := w.snapshot()
	assert.Equal(t, DisabledBlock(), blocks[len(blocks)-1])
}

func TestMirrorCountsFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection reset")}
	m := NewMirror(w, 1, 0, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	m.Receive(types.SnapshotFor(types.StateFault), time.Now())
	require.Eventually(t, func() bool { return m.Failures() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	m.Wait()
}

func TestNewEndpointClientRequiresEndpoint(t *testing.T) {
	_, err := NewEndpointClient(Config{})
	assert.Error(t, err)
}
