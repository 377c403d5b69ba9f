// Package app wires the runtime core to the bus, the dashboard, the
// blinker relays and the optional status mirror.
package app

import (
	"context"
	"errors"
	"fmt"

	"cluster-service/internal/actuator"
	"cluster-service/internal/config"
	"cluster-service/internal/core"
	"cluster-service/internal/events"
	"cluster-service/internal/hardware"
	"cluster-service/internal/health"
	"cluster-service/internal/logger"
	"cluster-service/internal/messaging"
	"cluster-service/internal/router"
	"cluster-service/internal/status"
	"cluster-service/internal/transport"
)

type outputs interface {
	actuator.Outputs
	Close() error
}

type Option func(*App)

// WithOpener replaces the SocketCAN opener.
func WithOpener(open transport.Opener) Option {
	return func(a *App) { a.open = open }
}

// App owns every long-lived component of the service.
type App struct {
	cfg    config.Config
	logger *logger.Logger
	open   transport.Opener

	Queue    *events.Queue
	Router   *router.Router
	Monitor  *health.Monitor
	Bridge   *transport.Bridge
	Redis    *messaging.RedisClient
	Actuator *actuator.Controller
	System   *core.System

	outputs outputs
	mirror  *status.Mirror
	modbus  status.RegisterWriter
}

func New(cfg config.Config, l *logger.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: l,
		open:   transport.SocketCANOpener,
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.Queue, err = events.New(cfg.Queue.Capacity); err != nil {
		return nil, fmt.Errorf("event queue: %w", err)
	}
	if a.Router, err = router.New(cfg.Router.MaxSubscribers); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	a.Monitor = health.New(cfg.Health.Staleness())

	a.Bridge = transport.NewBridge(cfg.Bus.Interface, cfg.Bus.FrameID, a.open, a.Queue, l.WithTag("bus"))

	if cfg.GPIO.Enabled {
		off, _ := actuator.Levels(false, false, cfg.Actuator.ActiveHigh)
		relays, err := hardware.NewRelayOutputs(cfg.GPIO.Chip, cfg.GPIO.LeftLine, cfg.GPIO.RightLine, off, l.WithTag("gpio"))
		if err != nil {
			return nil, err
		}
		a.outputs = relays
	} else {
		l.Infof("GPIO disabled, blinker levels are logged only")
		a.outputs = hardware.NewLogOutputs(l.WithTag("gpio"))
	}
	a.Actuator = actuator.New(a.outputs, l.WithTag("blinker"),
		actuator.WithHalfPeriod(cfg.Actuator.HalfPeriod()),
		actuator.WithFallback(cfg.Actuator.Fallback()),
		actuator.WithActiveHigh(cfg.Actuator.ActiveHigh))

	a.Redis = messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l.WithTag("redis"), messaging.Callbacks{
		InjectCallback: a.handleInject,
	})

	if cfg.Modbus.Enabled() {
		cli, err := status.NewEndpointClient(status.Config{
			Endpoint: cfg.Modbus.Endpoint,
			UnitID:   uint8(cfg.Modbus.UnitID),
			Address:  uint16(cfg.Modbus.Address),
			Timeout:  cfg.Modbus.Timeout(),
		})
		if err != nil {
			a.Redis.Close()
			a.outputs.Close()
			return nil, fmt.Errorf("status mirror: %w", err)
		}
		a.modbus = cli
		a.mirror = status.NewMirror(cli, uint8(cfg.Modbus.UnitID), uint16(cfg.Modbus.Address), l.WithTag("modbus"))
	}

	if err := a.subscribe(); err != nil {
		a.close()
		return nil, err
	}

	a.System = core.NewSystem(a.Queue, a.Router, a.Monitor, a.Bridge, a.Redis, l,
		core.WithTickers(a.Actuator))
	return a, nil
}

func (a *App) subscribe() error {
	errs := []error{
		a.Router.Samples.Subscribe(a.Actuator),
		a.Router.Samples.Subscribe(a.Redis),
		a.Router.Status.Subscribe(a.Actuator.StatusGate()),
		a.Router.Status.Subscribe(a.Redis.StatusSubscriber()),
	}
	if a.mirror != nil {
		errs = append(errs, a.Router.Status.Subscribe(a.mirror))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("subscribing consumers: %w", err)
	}
	return nil
}

// handleInject forwards injections from Redis. The listener starts during
// boot, after System is set.
func (a *App) handleInject(value string) error {
	return a.System.HandleInjectRequest(value)
}

// Run boots the node and runs the dispatch loop until ctx is done. A boot
// failure leaves the node in fault; the loop keeps running so the fault
// stays visible.
func (a *App) Run(ctx context.Context) error {
	if a.mirror != nil {
		a.mirror.Start(ctx)
	}

	if err := a.System.RunBootSequence(ctx); err != nil {
		a.logger.Errorf("Boot failed, staying in %s: %v", a.System.State(), err)
	}

	err := a.System.Run(ctx, a.cfg.Loop.Tick())
	a.close()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (a *App) close() {
	if err := a.Bridge.Close(); err != nil {
		a.logger.Warnf("Closing bus: %v", err)
	}
	if err := a.Redis.Close(); err != nil {
		a.logger.Warnf("Closing Redis: %v", err)
	}
	if a.mirror != nil {
		a.mirror.Wait()
	}
	if a.modbus != nil {
		a.modbus.Close()
	}

	// leave the relays off
	off, _ := actuator.Levels(false, false, a.cfg.Actuator.ActiveHigh)
	if err := a.outputs.SetLevels(off, off); err != nil {
		a.logger.Warnf("Turning blinkers off: %v", err)
	}
	if err := a.outputs.Close(); err != nil {
		a.logger.Warnf("Closing outputs: %v", err)
	}
	a.logger.Infof("Shutdown complete")
}
