package types

import (
	"strings"
	"testing"
)

func TestAddLogTruncates(t *testing.T) {
	long := strings.Repeat("x", 200)
	cmd := AddLog(long)
	if cmd.Kind != UIAddLog {
		t.Fatalf("Expected add-log, got %s", cmd.Kind)
	}
	if len(cmd.Text) != MaxLogLineLen {
		t.Errorf("Expected %d bytes, got %d", MaxLogLineLen, len(cmd.Text))
	}
}

func TestAddLogKeepsRunesWhole(t *testing.T) {
	// 94 ASCII bytes followed by a 2-byte rune straddling the limit
	text := strings.Repeat("a", 94) + "é" + "tail"
	cmd := AddLog(text)
	if cmd.Text != strings.Repeat("a", 94) {
		t.Errorf("Expected rune boundary cut, got %q", cmd.Text)
	}
}

func TestSnapshotFor(t *testing.T) {
	cases := map[SystemState]bool{
		StateBoot:           false,
		StateDisplayInit:    false,
		StateWaitingForData: false,
		StateActive:         true,
		StateDegraded:       true,
		StateFault:          false,
	}
	for state, want := range cases {
		if got := SnapshotFor(state).OutputsEnabled; got != want {
			t.Errorf("%s: expected outputsEnabled=%v, got %v", state, want, got)
		}
	}
}

func TestParseSubsystem(t *testing.T) {
	for _, s := range []Subsystem{SubsystemBus, SubsystemDisplay, SubsystemInput, SubsystemRenderer, SubsystemPresentation} {
		got, err := ParseSubsystem(s.String())
		if err != nil {
			t.Fatalf("ParseSubsystem(%q) failed: %v", s.String(), err)
		}
		if got != s {
			t.Errorf("Expected %v, got %v", s, got)
		}
	}
	if _, err := ParseSubsystem("touch"); err == nil {
		t.Error("Expected error for unknown subsystem")
	}
}
