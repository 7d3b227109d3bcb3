// Package record persists logger telemetry. Every Recorder here satisfies
// device.Recorder and adds Close.
package record

import (
	"errors"
	"io"

	"github.com/openobs/obslink/device"
)

// ErrClosed is returned when writing to a closed recorder.
var ErrClosed = errors.New("recorder closed")

// Recorder is a device.Recorder owning a resource.
type Recorder interface {
	device.Recorder
	io.Closer
}

var (
	_ Recorder = (*CSV)(nil)
	_ Recorder = (*SQLite)(nil)
)
