package hardware

import (
	"testing"

	"cluster-service/internal/logger"
)

func TestLogOutputs(t *testing.T) {
	o := NewLogOutputs(logger.Discard())

	if err := o.SetLevels(1, 0); err != nil {
		t.Fatalf("SetLevels failed: %v", err)
	}
	if err := o.SetLevels(0, 1); err != nil {
		t.Fatalf("SetLevels failed: %v", err)
	}

	l, r, n := o.Levels()
	if l != 0 || r != 1 || n != 2 {
		t.Errorf("Expected (0, 1, 2), got (%d, %d, %d)", l, r, n)
	}
}
