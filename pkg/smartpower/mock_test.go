package smartpower

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_StateMachine(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())
	assert.Equal(t, Disabled, m.DeviceState())

	steps := []struct {
		name string
		op   func() error
		want DeviceState
	}{
		{"enable", m.EnableMonitor, Enabled},
		{"start", m.StartMeasurement, Measuring},
		{"start again", m.StartMeasurement, Measuring},
		{"stop", m.StopMeasurement, EnabledIdle},
		{"stop again", m.StopMeasurement, EnabledIdle},
		{"enable while idle", m.EnableMonitor, EnabledIdle},
		{"disable", m.Disable, Disabled},
		{"stop while disabled", m.StopMeasurement, Disabled},
	}

	for _, s := range steps {
		require.NoError(t, s.op(), s.name)
		assert.Equal(t, s.want, m.DeviceState(), s.name)
	}

	assert.True(t, m.IsConnected())
	assert.Equal(t, []State{'C', 'A', 'A', 'B', 'B', 'C', 'D', 'B'}, m.Sent())
}

func TestMock_DisableMonitorCloses(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())
	require.NoError(t, m.StartMeasurement())
	require.NoError(t, m.DisableMonitor())

	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.StopMeasurement(), ErrNotConnected)
	assert.Equal(t, []State{EnableMonitor, StartMeasurement, DisableMonitor}, m.Sent())

	require.NoError(t, m.OpenDefault())
	assert.Equal(t, 2, m.Opens())
}

func TestMock_WriteFailure(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())

	boom := errors.New("boom")
	m.FailWrites(boom)

	err := m.StartMeasurement()
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.MonitorEnabled())
	_, sent := m.LastState()
	assert.False(t, sent)
	assert.Empty(t, m.Sent())

	m.FailWrites(nil)
	require.NoError(t, m.StartMeasurement())
	assert.True(t, m.MonitorEnabled())
	assert.Equal(t, []State{EnableMonitor, StartMeasurement}, m.Sent())
}

func TestMock_DisableMonitorWriteFailureStillCloses(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())
	require.NoError(t, m.EnableMonitor())

	boom := errors.New("boom")
	m.FailWrites(boom)

	assert.ErrorIs(t, m.DisableMonitor(), boom)
	assert.False(t, m.MonitorEnabled())
	assert.False(t, m.IsConnected())
}

func TestMock_FailOpen(t *testing.T) {
	m := NewMock(nil)
	m.FailOpen(errors.New("no device"))

	var oerr *OpenError
	require.ErrorAs(t, m.Open("/dev/ttyUSB9"), &oerr)
	assert.Equal(t, "/dev/ttyUSB9", oerr.Path)
	assert.Zero(t, oerr.Errno())
	assert.Equal(t, 0, m.Opens())
	assert.False(t, m.IsConnected())
}

func TestDeviceState_String(t *testing.T) {
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "enabled", Enabled.String())
	assert.Equal(t, "measuring", Measuring.String())
	assert.Equal(t, "idle", EnabledIdle.String())
	assert.Equal(t, "unknown", DeviceState(42).String())
}

func TestMock_ConcurrentMeasurements(t *testing.T) {
	const n = 50

	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.StartMeasurement()
			errs <- m.StopMeasurement()
			_ = m.Sent()
			_ = m.MonitorEnabled()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	sent := m.Sent()
	require.Len(t, sent, 2*n+1)
	assert.Equal(t, EnableMonitor, sent[0])

	counts := map[State]int{}
	for _, s := range sent {
		counts[s]++
	}
	assert.Equal(t, 1, counts[EnableMonitor])
	assert.Equal(t, n, counts[StartMeasurement])
	assert.Equal(t, n, counts[StopMeasurement])
	assert.True(t, m.MonitorEnabled())
}

func TestSample_CloseErrorJoined(t *testing.T) {
	m := NewMock(nil)
	require.NoError(t, m.OpenDefault())

	writeErr := errors.New("write failed")
	closeErr := errors.New("close failed")
	m.FailWrites(writeErr)
	m.FailClose(closeErr)

	err := Sample(context.Background(), m, time.Millisecond)
	assert.ErrorIs(t, err, writeErr)
	assert.ErrorIs(t, err, closeErr)
	assert.False(t, m.IsConnected())
}
