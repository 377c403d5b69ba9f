package actuator

import (
	"errors"
	"testing"
	"time"

	"cluster-service/internal/logger"
	"cluster-service/internal/types"
)

type levelWrite struct {
	left, right int
}

// Mock Outputs
type mockOutputs struct {
	writes []levelWrite
	err    error
}

func (m *mockOutputs) SetLevels(left, right int) error {
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, levelWrite{left, right})
	return nil
}

func newTestController(out *mockOutputs, opts ...Option) *Controller {
	return New(out, logger.Discard(), opts...)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		leftOn, rightOn, activeHigh bool
		wantL, wantR                int
	}{
		{true, false, true, 1, 0},
		{false, true, true, 0, 1},
		{true, true, false, 0, 0},
		{false, false, false, 1, 1},
	}
	for _, tt := range tests {
		l, r := Levels(tt.leftOn, tt.rightOn, tt.activeHigh)
		if l != tt.wantL || r != tt.wantR {
			t.Errorf("Levels(%v, %v, %v) = (%d, %d), want (%d, %d)",
				tt.leftOn, tt.rightOn, tt.activeHigh, l, r, tt.wantL, tt.wantR)
		}
	}
}

func TestLeftBlinksAtHalfPeriod(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out)
	t0 := time.Unix(1000, 0)
	left := types.Sample{LeftTurn: true}

	type observation struct {
		at      time.Duration
		leftOn  bool
		rightOn bool
	}
	var got []observation

	// samples every 100ms, ticks every 50ms, for 2.2 blink periods
	for ms := 0; ms <= 2200; ms += 50 {
		now := t0.Add(time.Duration(ms) * time.Millisecond)
		if ms%100 == 0 {
			c.Receive(left, now)
		}
		c.Update(now)
		l, r := c.Outputs()
		got = append(got, observation{time.Duration(ms) * time.Millisecond, l, r})
	}

	for _, o := range got {
		wantOn := (o.at/DefaultHalfPeriod)%2 == 0
		if o.leftOn != wantOn {
			t.Errorf("At %v: expected left on=%v, got %v", o.at, wantOn, o.leftOn)
		}
		if o.rightOn {
			t.Errorf("At %v: right output must stay off", o.at)
		}
	}

	// one write per edge: on at 0, then a flip every 500ms up to 2000ms
	if len(out.writes) != 5 {
		t.Fatalf("Expected 5 writes, got %d: %v", len(out.writes), out.writes)
	}
	for i, w := range out.writes {
		want := levelWrite{left: 1 - i%2, right: 0}
		if w != want {
			t.Errorf("Write %d: expected %v, got %v", i, want, w)
		}
	}
}

func TestFallbackForcesOff(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out)
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{LeftTurn: true, RightTurn: true}, t0)
	c.Update(t0)
	if l, r := c.Outputs(); !l || !r {
		t.Fatalf("Expected both on after sync, got %v %v", l, r)
	}

	c.Update(t0.Add(DefaultFallback))
	if l, r := c.Requests(); !l || !r {
		t.Fatal("Requests must survive up to the fallback window")
	}

	c.Update(t0.Add(DefaultFallback + time.Millisecond))
	if l, r := c.Requests(); l || r {
		t.Error("Expected requests dropped after the fallback window")
	}
	if l, r := c.Outputs(); l || r {
		t.Errorf("Expected outputs forced off, got %v %v", l, r)
	}

	last := out.writes[len(out.writes)-1]
	if last != (levelWrite{0, 0}) {
		t.Errorf("Expected final write off, got %v", last)
	}

	n := len(out.writes)
	c.Update(t0.Add(5 * time.Second))
	if len(out.writes) != n {
		t.Error("Expected no redundant writes once off")
	}
}

func TestRisingEdgeResyncsPhase(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out)
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{LeftTurn: true}, t0)
	c.Update(t0)

	// left is off in its second half period when right starts
	at := t0.Add(600 * time.Millisecond)
	c.Receive(types.Sample{LeftTurn: true}, t0.Add(500*time.Millisecond))
	c.Update(t0.Add(500 * time.Millisecond))
	if l, _ := c.Outputs(); l {
		t.Fatal("Expected left off after first half period")
	}

	c.Receive(types.Sample{LeftTurn: true, RightTurn: true}, at)
	if l, r := c.Outputs(); l || r {
		t.Fatal("Receive must not touch the outputs")
	}
	c.Update(at)
	if l, r := c.Outputs(); !l || !r {
		t.Errorf("Expected both sides on in phase, got %v %v", l, r)
	}

	c.Receive(types.Sample{LeftTurn: true, RightTurn: true}, at.Add(100*time.Millisecond))
	c.Update(at.Add(DefaultHalfPeriod))
	if l, r := c.Outputs(); l || r {
		t.Errorf("Expected both sides off together, got %v %v", l, r)
	}
}

func TestRequestReleaseForcesOff(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out)
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{RightTurn: true}, t0)
	c.Update(t0)
	c.Receive(types.Sample{}, t0.Add(100*time.Millisecond))
	c.Update(t0.Add(100 * time.Millisecond))

	if _, r := c.Outputs(); r {
		t.Error("Expected right off once the request is released")
	}
}

func TestStatusGate(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out)
	gate := c.StatusGate()
	if gate != c.StatusGate() {
		t.Fatal("StatusGate must return a stable subscriber")
	}
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{LeftTurn: true}, t0)
	c.Update(t0)

	gate.Receive(types.SnapshotFor(types.StateFault), t0)
	c.Update(t0.Add(10 * time.Millisecond))
	if l, _ := c.Outputs(); l {
		t.Error("Expected outputs off when disabled")
	}

	c.Receive(types.Sample{LeftTurn: true}, t0.Add(20*time.Millisecond))
	c.Update(t0.Add(20 * time.Millisecond))
	if l, _ := c.Outputs(); l {
		t.Error("Requests must be ignored while disabled")
	}

	gate.Receive(types.SnapshotFor(types.StateActive), t0.Add(30*time.Millisecond))
	c.Receive(types.Sample{LeftTurn: true}, t0.Add(40*time.Millisecond))
	c.Update(t0.Add(40 * time.Millisecond))
	if l, _ := c.Outputs(); !l {
		t.Error("Expected left on after re-enable")
	}
}

func TestActiveLowPolarity(t *testing.T) {
	out := &mockOutputs{}
	c := newTestController(out, WithActiveHigh(false), WithHalfPeriod(100*time.Millisecond))
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{LeftTurn: true}, t0)
	c.Update(t0)
	c.Update(t0.Add(100 * time.Millisecond))

	want := []levelWrite{{0, 1}, {1, 1}}
	if len(out.writes) != len(want) {
		t.Fatalf("Expected %v, got %v", want, out.writes)
	}
	for i := range want {
		if out.writes[i] != want[i] {
			t.Errorf("Write %d: expected %v, got %v", i, want[i], out.writes[i])
		}
	}
}

func TestWriteFailureRetries(t *testing.T) {
	out := &mockOutputs{err: errors.New("line busy")}
	c := newTestController(out)
	t0 := time.Unix(1000, 0)

	c.Receive(types.Sample{LeftTurn: true}, t0)
	c.Update(t0)
	if len(out.writes) != 0 {
		t.Fatal("Expected no recorded writes")
	}

	// the failed write is not remembered, so the next change is written
	out.err = nil
	c.Update(t0.Add(DefaultHalfPeriod))
	if len(out.writes) != 1 || out.writes[0] != (levelWrite{0, 0}) {
		t.Errorf("Expected one write with left off, got %v", out.writes)
	}
}
