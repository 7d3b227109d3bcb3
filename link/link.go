// Package link owns the connection to an OpenOBS data logger. It reassembles
// lines from the byte stream, validates their framing and routes them: DATA
// telemetry goes to a Queue the consumer drains on its own schedule, every
// other sentence is handed synchronously to a Handler.
//
// Two implementations share the Link contract: Serial talks to real hardware
// through a Dialer, Simulator synthesizes a device for tests and demos.
package link

//go:generate go tool mockgen -source=link.go -destination=mock_link.go -package=link

import "context"

// State is the connection state of a Link.
type State int32

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Handler consumes every decoded sentence that is not telemetry.
//
// HandleSentence is called on the link's reader goroutine, in the order the
// sentences arrived, never concurrently with itself for one link. It must
// return quickly; long work should be handed off to another goroutine.
//
// A handler may call Send and Close on its link. No new call starts once
// Close has returned; a call already running when Close is invoked may
// finish afterwards.
type Handler interface {
	HandleSentence(sentence string)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(sentence string)

func (f HandlerFunc) HandleSentence(sentence string) {
	f(sentence)
}

// Link is a connection to a data logger.
type Link interface {
	// Open connects to the named port. It fails with ErrAlreadyOpen if the
	// link is open, or with the driver error if the port cannot be opened.
	Open(ctx context.Context, port string) error
	// Close stops background work and releases the port. It fails with
	// ErrNotOpen if the link is not open.
	Close() error
	// Send frames sentence with a checksum and writes it.
	Send(sentence string) error
	// IsOpen is safe to call from any goroutine.
	IsOpen() bool
	// Telemetry is the queue receiving DATA sentences.
	Telemetry() *Queue
}

var (
	_ Link = (*Serial)(nil)
	_ Link = (*Simulator)(nil)
)
