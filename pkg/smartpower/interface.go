package smartpower

// Device defines the interface for SmartPower devices (real or mocked).
type Device interface {
	Open(path string) error
	OpenDefault() error
	Close() error
	SendState(s State) error
	EnableMonitor() error
	Disable() error
	DisableMonitor() error
	StartMeasurement() error
	StopMeasurement() error
	MonitorEnabled() bool
	IsConnected() bool
}

// Ensure Controller implements Device.
var _ Device = (*Controller)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
