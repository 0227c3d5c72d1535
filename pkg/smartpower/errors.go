package smartpower

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = errors.New("smartpower: not connected")
	// ErrAlreadyConnected is returned by Open on a controller that is already open.
	ErrAlreadyConnected = errors.New("smartpower: already connected")
	// ErrInvalidState is returned for codes outside A-D.
	ErrInvalidState = errors.New("smartpower: invalid state code")
)

// OpenError reports that the device path could not be opened for writing.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("smartpower: failed to open %s (errno = %d): %v", e.Path, e.Errno(), e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Errno returns the platform error code behind the failure, or 0 if the
// underlying error carries none.
func (e *OpenError) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}
