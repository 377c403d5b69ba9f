package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"cluster-service/internal/logger"
)

// RelayOutputs drives the two blinker relays through GPIO character
// device lines.
type RelayOutputs struct {
	logger *logger.Logger
	chip   *gpiocdev.Chip
	left   *gpiocdev.Line
	right  *gpiocdev.Line
	mu     sync.Mutex
}

// NewRelayOutputs requests both lines as outputs at the given initial level.
func NewRelayOutputs(chipName string, leftLine, rightLine, initial int, l *logger.Logger) (*RelayOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipName, err)
	}

	left, err := chip.RequestLine(leftLine,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request GPIO line %d: %w", leftLine, err)
	}

	right, err := chip.RequestLine(rightLine,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		left.Close()
		chip.Close()
		return nil, fmt.Errorf("failed to request GPIO line %d: %w", rightLine, err)
	}

	l.Infof("Configured blinker relays: chip=%s, left=%d, right=%d", chipName, leftLine, rightLine)
	return &RelayOutputs{
		logger: l,
		chip:   chip,
		left:   left,
		right:  right,
	}, nil
}

func (o *RelayOutputs) SetLevels(left, right int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.left.SetValue(left); err != nil {
		return fmt.Errorf("failed to set left relay: %w", err)
	}
	if err := o.right.SetValue(right); err != nil {
		return fmt.Errorf("failed to set right relay: %w", err)
	}
	return nil
}

func (o *RelayOutputs) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.left.Close()
	o.right.Close()
	o.logger.Debugf("Closed GPIO lines")
	return o.chip.Close()
}

// LogOutputs stands in for the relays when GPIO is disabled. It records
// the last levels and logs every change.
type LogOutputs struct {
	logger      *logger.Logger
	mu          sync.Mutex
	left, right int
	writes      int
}

func NewLogOutputs(l *logger.Logger) *LogOutputs {
	return &LogOutputs{logger: l}
}

func (o *LogOutputs) SetLevels(left, right int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.left, o.right = left, right
	o.writes++
	o.logger.Debugf("Blinker levels: left=%d right=%d", left, right)
	return nil
}

// Levels returns the last written levels and the number of writes.
func (o *LogOutputs) Levels() (left, right, writes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.left, o.right, o.writes
}

func (o *LogOutputs) Close() error { return nil }
