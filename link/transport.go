package link

//go:generate go tool mockgen -source=transport.go -destination=mock_transport_test.go -package=link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the rate OpenOBS loggers talk at.
	DefaultBaudRate = 250000
	// DefaultReadTimeout bounds a single Read so the reader can notice a
	// stop request.
	DefaultReadTimeout = 100 * time.Millisecond
)

// Port represents an established, bidirectional byte stream to a data logger.
//
// A Port is assumed to be already connected and ready for use. Read may
// return 0, nil when its read timeout expires without data. Typical
// implementations include serial ports and in-memory fakes used for testing.
type Port interface {
	io.ReadWriteCloser
}

// Dialer opens a Port by name.
//
// Dialer abstracts how the connection is created (serial device, test
// double) and is used by Serial on every Open.
type Dialer interface {
	// Dial creates and returns a connected Port. It should respect
	// cancellation of ctx. Dial returns an error if the port cannot be
	// opened.
	Dial(ctx context.Context, name string) (Port, error)
}

// SerialDialer opens ports with go.bug.st/serial using 8N1 framing.
type SerialDialer struct {
	// BaudRate defaults to DefaultBaudRate.
	BaudRate int
	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Dial opens the named serial device.
func (d SerialDialer) Dial(ctx context.Context, name string) (Port, error) {
	if ctx == nil {
		return nil, errors.New("link: context is nil")
	}
	if name == "" {
		return nil, errors.New("link: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := d.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// PortInfo describes a serial port present on the host.
type PortInfo struct {
	Name         string `json:"name"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts enumerates the serial ports currently available.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}

// disconnected reports whether err means the device went away rather than
// a configuration or I/O fault.
func disconnected(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		}
	}
	return false
}
