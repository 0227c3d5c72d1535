package smartpower

import (
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
)

const (
	// DefaultPath is the first USB serial port, where the SmartPower 2 usually shows up.
	DefaultPath = "/dev/ttyUSB0"
	// DefaultBaudRate is used when the port is opened through the serial driver.
	DefaultBaudRate = 115200
)

// Opener opens a device path for writing.
type Opener func(path string) (io.WriteCloser, error)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// OpenFile opens path write-only, creating or truncating it like a plain
// text-mode write open. This is how the character device is normally driven.
func OpenFile(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

// OpenSerial returns an Opener that configures the line through the serial
// driver before writing. A zero baudRate selects DefaultBaudRate.
func OpenSerial(baudRate int) Opener {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return func(path string) (io.WriteCloser, error) {
		port, err := serial.Open(path, &serial.Mode{
			BaudRate: baudRate,
		})
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}
