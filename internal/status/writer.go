package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"cluster-service/internal/logger"
	"cluster-service/internal/types"
)

// RegisterWriter writes a block of holding registers.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
	Close() error
}

type Config struct {
	Endpoint string
	UnitID   uint8
	Address  uint16
	Timeout  time.Duration
}

// EndpointClient is a single TCP connection to one Modbus endpoint.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("status modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// Mirror subscribes to the status topic and writes every snapshot to the
// register block from its own goroutine.
type Mirror struct {
	cli     RegisterWriter
	unitID  uint8
	address uint16
	logger  *logger.Logger

	latest chan []uint16
	wg     sync.WaitGroup

	mu          sync.Mutex
	transitions uint64
	failures    uint64
}

func NewMirror(cli RegisterWriter, unitID uint8, address uint16, l *logger.Logger) *Mirror {
	return &Mirror{
		cli:     cli,
		unitID:  unitID,
		address: address,
		logger:  l,
		latest:  make(chan []uint16, 1),
	}
}

// Receive encodes the snapshot and hands it to the writer goroutine.
// An unwritten older block is replaced.
func (m *Mirror) Receive(s types.StatusSnapshot, _ time.Time) {
	m.mu.Lock()
	m.transitions++
	regs := Encode(s, m.transitions)
	m.mu.Unlock()

	for {
		select {
		case m.latest <- regs:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

// Start runs the writer until ctx is done, then marks the block disabled.
func (m *Mirror) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				m.write(DisabledBlock())
				return
			case regs := <-m.latest:
				m.write(regs)
			}
		}
	}()
}

func (m *Mirror) write(regs []uint16) {
	if err := m.cli.WriteRegisters(m.unitID, m.address, regs); err != nil {
		m.mu.Lock()
		m.failures++
		m.mu.Unlock()
		m.logger.Warnf("Failed to write status block: %v", err)
		return
	}
	m.logger.Debugf("Status block written: %v", regs)
}

// Failures counts failed block writes.
func (m *Mirror) Failures() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Wait blocks until the writer goroutine has exited.
func (m *Mirror) Wait() {
	m.wg.Wait()
}
