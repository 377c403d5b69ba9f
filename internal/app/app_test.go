package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"cluster-service/internal/config"
	"cluster-service/internal/hardware"
	"cluster-service/internal/logger"
	"cluster-service/internal/transport"
	"cluster-service/internal/types"
)

func failingOpener(string) (transport.Bus, error) {
	return nil, errors.New("no such device")
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Bus.Interface = "vcan-test"
	cfg.Loop.TickMs = 5
	return cfg
}

func TestNewWiresSubscribers(t *testing.T) {
	a, err := New(testConfig(), logger.Discard(), WithOpener(failingOpener))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.close()

	if n := a.Router.Samples.Len(); n != 2 {
		t.Errorf("Expected 2 sample subscribers, got %d", n)
	}
	if n := a.Router.Status.Len(); n != 2 {
		t.Errorf("Expected 2 status subscribers, got %d", n)
	}
	if a.Queue.Cap() != config.Defaults().Queue.Capacity {
		t.Errorf("Expected queue capacity %d, got %d", config.Defaults().Queue.Capacity, a.Queue.Cap())
	}
	if a.System.State() != types.StateBoot {
		t.Errorf("Expected boot state before Run, got %s", a.System.State())
	}
}

func TestNewRejectsInvalidCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.Capacity = 0

	if _, err := New(cfg, logger.Discard()); err == nil {
		t.Fatal("Expected error for zero queue capacity")
	}
}

func TestNewFailsOnUnreachableMirror(t *testing.T) {
	cfg := testConfig()
	cfg.Modbus.Endpoint = "127.0.0.1:1"
	cfg.Modbus.TimeoutMs = 200

	if _, err := New(cfg, logger.Discard()); err == nil {
		t.Fatal("Expected error for unreachable Modbus endpoint")
	}
}

func TestRunStaysInFaultAfterBusFailure(t *testing.T) {
	a, err := New(testConfig(), logger.Discard(), WithOpener(failingOpener))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run returned %v after cancellation", err)
	}
	if a.System.State() != types.StateFault {
		t.Errorf("Expected fault, got %s", a.System.State())
	}
	if a.System.Status().OutputsEnabled {
		t.Error("Outputs must be disabled in fault")
	}

	out, ok := a.outputs.(*hardware.LogOutputs)
	if !ok {
		t.Fatalf("Expected log outputs with GPIO disabled, got %T", a.outputs)
	}
	left, right, writes := out.Levels()
	if writes == 0 || left != 0 || right != 0 {
		t.Errorf("Expected relays left off, got left=%d right=%d writes=%d", left, right, writes)
	}
}
