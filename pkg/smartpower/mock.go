package smartpower

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// DeviceState is the state the device is in after the codes it received.
type DeviceState int

const (
	Disabled DeviceState = iota
	Enabled
	Measuring
	EnabledIdle
)

func (s DeviceState) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case Measuring:
		return "measuring"
	case EnabledIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Mock simulates a SmartPower 2 device for testing and development. It runs
// the real Controller against an in-memory device that records every code.
type Mock struct {
	*Controller

	dev *mockDevice
}

// NewMock creates a new mocked device instance.
func NewMock(log *zap.Logger) *Mock {
	dev := &mockDevice{}
	return &Mock{
		Controller: New(dev.open, log),
		dev:        dev,
	}
}

// Sent returns every code the device received, in order.
func (m *Mock) Sent() []State {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	out := make([]State, len(m.dev.sent))
	copy(out, m.dev.sent)
	return out
}

// DeviceState returns the simulated device state.
func (m *Mock) DeviceState() DeviceState {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	return m.dev.state
}

// Opens returns how many times the device was opened.
func (m *Mock) Opens() int {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	return m.dev.opens
}

// FailOpen makes subsequent opens fail with err. A nil err clears it.
func (m *Mock) FailOpen(err error) {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	m.dev.openErr = err
}

// FailWrites makes subsequent writes fail with err. A nil err clears it.
func (m *Mock) FailWrites(err error) {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	m.dev.writeErr = err
}

// FailClose makes subsequent closes fail with err. A nil err clears it.
func (m *Mock) FailClose(err error) {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	m.dev.closeErr = err
}

var errMockClosed = errors.New("mock: write on closed device")

type mockDevice struct {
	mu       sync.Mutex
	sent     []State
	state    DeviceState
	opens    int
	openErr  error
	writeErr error
	closeErr error
}

func (d *mockDevice) open(string) (io.WriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens++
	return &mockConn{dev: d}, nil
}

func (d *mockDevice) receive(s State) {
	d.sent = append(d.sent, s)
	switch s {
	case EnableMonitor:
		if d.state == Disabled {
			d.state = Enabled
		}
	case StartMeasurement:
		d.state = Measuring
	case StopMeasurement:
		if d.state != Disabled {
			d.state = EnabledIdle
		}
	case DisableMonitor:
		d.state = Disabled
	}
}

type mockConn struct {
	dev    *mockDevice
	closed bool
}

func (c *mockConn) Write(p []byte) (int, error) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.closed {
		return 0, errMockClosed
	}
	if c.dev.writeErr != nil {
		return 0, c.dev.writeErr
	}
	for _, b := range p {
		c.dev.receive(State(b))
	}
	return len(p), nil
}

func (c *mockConn) Close() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	c.closed = true
	return c.dev.closeErr
}
