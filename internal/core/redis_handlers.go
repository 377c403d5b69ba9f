package core

import (
	"fmt"
	"strconv"
	"strings"

	"cluster-service/internal/types"
)

// ParseInjection parses a fault injection request.
// Accepted forms are "init-fail:<subsystem>" and "error:<code>".
func ParseInjection(value string) (types.Event, error) {
	kind, arg, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return nil, fmt.Errorf("invalid injection request: %q", value)
	}

	switch kind {
	case "init-fail":
		sub, err := types.ParseSubsystem(arg)
		if err != nil {
			return nil, err
		}
		return types.InitFail{Subsystem: sub}, nil
	case "error":
		code, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid error code %q: %w", arg, err)
		}
		return types.Error{Code: uint32(code)}, nil
	default:
		return nil, fmt.Errorf("unknown injection kind: %q", kind)
	}
}

// HandleInjectRequest handles fault injection requests from Redis. The
// event goes through the queue like any other.
func (s *System) HandleInjectRequest(value string) error {
	s.logger.Debugf("Handling inject request: %s", value)

	ev, err := ParseInjection(value)
	if err != nil {
		return err
	}
	if !s.queue.Push(ev, 0) {
		return fmt.Errorf("event queue full, dropped %v", ev)
	}
	s.logger.Warnf("Injected %v", ev)
	return nil
}
