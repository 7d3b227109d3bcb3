package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Config is built without a Dialer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNoPort is returned when a Dialer reports success without a Port.
	ErrNoPort = errors.New("dialer returned no port")

	// ErrAlreadyOpen is returned by Open when the link is already connected.
	ErrAlreadyOpen = errors.New("already connected to a port")

	// ErrNotOpen is returned by Close and Send when the link is not
	// connected. Close returns it after the reader has already torn the
	// connection down because of a read error, so shutdown code may ignore
	// it.
	ErrNotOpen = errors.New("not connected to any port")

	// ErrLineTooLong is reported when the reader accumulates more than the
	// configured maximum without seeing a line terminator. The partial line
	// is dropped and the reader resynchronizes on the next terminator.
	ErrLineTooLong = errors.New("line too long")
)

// ConnectionError describes a failed connection-level operation.
//
// Callers can use errors.Is with ErrAlreadyOpen or ErrNotOpen, or inspect the
// wrapped driver error.
type ConnectionError struct {
	// Op is the operation that failed: "open", "close", "send" or "read".
	Op string
	// Port is the port name, if known.
	Port string
	// Err is the underlying cause.
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("link: %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
