package smartpower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Controller drives one SmartPower 2 device through a write-only connection.
type Controller struct {
	open Opener
	log  *zap.Logger

	mu             sync.Mutex
	conn           io.WriteCloser
	path           string
	monitorEnabled bool
	last           State
	sent           bool
}

// New creates a controller. A nil opener selects OpenFile and a nil logger
// disables logging.
func New(opener Opener, log *zap.Logger) *Controller {
	if opener == nil {
		opener = OpenFile
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		open: opener,
		log:  log,
	}
}

// Open opens path for writing. On failure the returned error is an *OpenError
// and the controller stays disconnected.
func (c *Controller) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := c.open(path)
	if err != nil {
		oerr := &OpenError{Path: path, Err: err}
		c.log.Error("failed to open device", zap.String("path", path), zap.Int("errno", int(oerr.Errno())), zap.Error(err))
		return oerr
	}

	c.conn = conn
	c.path = path
	c.log.Info("device opened", zap.String("path", path))
	return nil
}

// OpenDefault opens DefaultPath.
func (c *Controller) OpenDefault() error {
	return c.Open(DefaultPath)
}

// Close closes the connection. Closing a controller that is not open is a no-op.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Controller) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.log.Info("device closed", zap.String("path", c.path))
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", c.path, err)
	}
	return nil
}

// SendState writes a single state code to the device.
func (c *Controller) SendState(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(s)
}

func (c *Controller) sendLocked(s State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, byte(s))
	}
	if c.conn == nil {
		return ErrNotConnected
	}

	if _, err := c.conn.Write([]byte{byte(s)}); err != nil {
		c.log.Error("failed to send state", zap.Stringer("state", s), zap.Error(err))
		return fmt.Errorf("failed to send state %s: %w", s, err)
	}

	c.last = s
	c.sent = true
	c.log.Debug("state sent", zap.Stringer("state", s), zap.String("command", s.Name()))
	return nil
}

// EnableMonitor tells the device to echo its state to the telnet port.
func (c *Controller) EnableMonitor() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enableLocked()
}

func (c *Controller) enableLocked() error {
	if err := c.sendLocked(EnableMonitor); err != nil {
		return err
	}
	c.monitorEnabled = true
	return nil
}

// Disable tells the device to stop echoing its state. The connection stays open.
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitorEnabled = false
	return c.sendLocked(DisableMonitor)
}

// DisableMonitor disables the monitor and closes the connection, so the
// controller must be reopened before it can send again.
func (c *Controller) DisableMonitor() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.monitorEnabled = false
	err := c.sendLocked(DisableMonitor)
	if cerr := c.closeLocked(); err == nil {
		err = cerr
	}
	return err
}

// StartMeasurement makes the device report real power values, enabling the
// monitor first if needed.
func (c *Controller) StartMeasurement() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.monitorEnabled {
		if err := c.enableLocked(); err != nil {
			return err
		}
	}
	return c.sendLocked(StartMeasurement)
}

// StopMeasurement makes the device report 0 as power value.
func (c *Controller) StopMeasurement() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(StopMeasurement)
}

// MonitorEnabled returns whether the monitor has been enabled.
func (c *Controller) MonitorEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitorEnabled
}

// IsConnected returns whether the device is currently open.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Path returns the device path of the last successful Open.
func (c *Controller) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// LastState returns the last code written successfully.
func (c *Controller) LastState() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.sent
}

// Sample runs one measurement cycle: enable, start, wait for pause, stop and
// disable. The default device is opened if d is not connected yet. The
// connection is closed on return.
func Sample(ctx context.Context, d Device, pause time.Duration) error {
	if !d.IsConnected() {
		if err := d.OpenDefault(); err != nil {
			return err
		}
	}

	if err := d.EnableMonitor(); err != nil {
		return errors.Join(err, d.Close())
	}
	if err := d.StartMeasurement(); err != nil {
		return errors.Join(err, d.Close())
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := d.StopMeasurement(); err != nil {
		return errors.Join(err, d.Close())
	}
	if err := d.DisableMonitor(); err != nil {
		return err
	}
	return waitErr
}
