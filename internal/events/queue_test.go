package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"cluster-service/internal/types"
)

func sampleEvent(speed int) types.Event {
	return types.SampleReceived{Sample: types.Sample{Speed: uint16(speed)}}
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrZeroCapacity)
}

func TestOverflowPreservesFIFO(t *testing.T) {
	q, err := New(3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.True(t, q.PushFromInterrupt(sampleEvent(i)))
	}
	assert.False(t, q.PushFromInterrupt(sampleEvent(99)))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev, ok := q.Pop(ctx, 0)
		require.True(t, ok)
		assert.Equal(t, sampleEvent(i), ev)
	}
	_, ok := q.Pop(ctx, 0)
	assert.False(t, ok)
}

func TestPushWaitsForSpace(t *testing.T) {
	q, err := New(1)
	require.NoError(t, err)
	require.True(t, q.Push(types.StalenessTimeout{}, 0))

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Pop(context.Background(), 0)
	}()

	assert.True(t, q.Push(types.Error{Code: 7}, time.Second))
	ev, ok := q.Pop(context.Background(), 0)
	require.True(t, ok)
	assert.Equal(t, types.Error{Code: 7}, ev)
}

func TestPushTimesOut(t *testing.T) {
	q, err := New(1)
	require.NoError(t, err)
	require.True(t, q.Push(types.StalenessTimeout{}, 0))

	start := time.Now()
	assert.False(t, q.Push(types.StalenessTimeout{}, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPopHonoursContext(t *testing.T) {
	q, err := New(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, ok := q.Pop(ctx, time.Minute)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFIFOUnderOverflow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		q, err := New(capacity)
		if err != nil {
			t.Fatal(err)
		}

		var accepted []int
		pops := 0
		ops := rapid.SliceOfN(rapid.Bool(), 1, 64).Draw(t, "ops")
		for i, push := range ops {
			if push {
				if q.PushFromInterrupt(sampleEvent(i)) {
					accepted = append(accepted, i)
				}
				continue
			}
			ev, ok := q.Pop(context.Background(), 0)
			if pops >= len(accepted) {
				if ok {
					t.Fatalf("popped %v from an empty queue", ev)
				}
				continue
			}
			if !ok {
				t.Fatalf("expected entry %d", accepted[pops])
			}
			if ev != sampleEvent(accepted[pops]) {
				t.Fatalf("FIFO violated: got %v want %d", ev, accepted[pops])
			}
			pops++
		}
		if q.Len() > capacity {
			t.Fatalf("length %d exceeds capacity %d", q.Len(), capacity)
		}
	})
}
