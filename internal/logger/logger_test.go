package logger

import (
	"bytes"
	"log"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarning,
		"error":   LogLevelError,
		"none":    LogLevelNone,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestTaggedOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(log.New(&buf, "", 0), LogLevelWarning).WithTag("router")

	l.Infof("hidden")
	l.Warnf("capacity %d", 8)

	if got, want := buf.String(), "[router] WARN: capacity 8\n"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Errorf("nothing to see")
	l.WithTag("x").Debugf("still nothing")
}
