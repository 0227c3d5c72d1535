package smartpower

import (
	"fmt"
	"strings"
)

// State is a single ASCII command code understood by the SmartPower 2 device.
type State byte

const (
	// StartMeasurement makes the device report real measured power values.
	StartMeasurement State = 'A'
	// StopMeasurement makes the device report 0 as power value.
	StopMeasurement State = 'B'
	// EnableMonitor makes the device echo its state to the telnet port.
	EnableMonitor State = 'C'
	// DisableMonitor stops the echo.
	DisableMonitor State = 'D'
)

// Valid reports whether s is one of the four codes the device accepts.
func (s State) Valid() bool {
	return s >= StartMeasurement && s <= DisableMonitor
}

// String returns the one-letter code.
func (s State) String() string {
	return string(rune(s))
}

// Name returns the command word for s.
func (s State) Name() string {
	switch s {
	case StartMeasurement:
		return "start"
	case StopMeasurement:
		return "stop"
	case EnableMonitor:
		return "enable"
	case DisableMonitor:
		return "disable"
	default:
		return fmt.Sprintf("unknown(%q)", byte(s))
	}
}

// ParseState accepts either a code letter ("A".."D", any case) or a command word
// ("start", "stop", "enable", "disable").
func ParseState(s string) (State, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "a", "start":
		return StartMeasurement, nil
	case "b", "stop":
		return StopMeasurement, nil
	case "c", "enable":
		return EnableMonitor, nil
	case "d", "disable":
		return DisableMonitor, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
}
