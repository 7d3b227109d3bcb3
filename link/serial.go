package link

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openobs/obslink/nmea"
)

// readChunk is the size of a single Read from the port.
const readChunk = 1024

// Serial is a Link to real hardware.
//
// Each Open starts exactly one reader goroutine that is the only reader of
// the port. The reader owns the line accumulator; the telemetry queue is the
// only structure it shares with consumers.
type Serial struct {
	config  Config
	handler Handler
	logger  *slog.Logger
	queue   *Queue

	state atomic.Int32

	// mu guards conn and serializes Open and Close.
	mu   sync.Mutex
	conn *conn
}

// conn is one open port together with its reader.
type conn struct {
	name   string
	port   Port
	cancel context.CancelFunc
	done   chan struct{}

	// wmu serializes writes from Send callers and from handlers replying on
	// the reader goroutine.
	wmu sync.Mutex

	// handling is set while the reader is inside the Handler.
	handling atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func (c *conn) closePort() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.port.Close()
	})
	return c.closeErr
}

// NewSerial creates a closed Serial link delivering non-telemetry sentences
// to h.
func NewSerial(config Config, h Handler) *Serial {
	config.setDefaults()
	if h == nil {
		h = HandlerFunc(func(string) {})
	}
	return &Serial{
		config:  config,
		handler: h,
		logger:  config.logger,
		queue:   NewQueue(),
	}
}

// Open dials port and starts the reader. Stale telemetry from a previous
// connection is discarded. ctx bounds dialing only; the connection lives
// until Close or a read error.
func (s *Serial) Open(ctx context.Context, port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return &ConnectionError{Op: "open", Port: port, Err: ErrAlreadyOpen}
	}

	p, err := s.config.dialer.Dial(ctx, port)
	if err == nil && p == nil {
		err = ErrNoPort
	}
	if err != nil {
		s.logger.Error("Failed to connect", "port", port, "error", err)
		return &ConnectionError{Op: "open", Port: port, Err: err}
	}

	s.queue.Reset()

	readCtx, cancel := context.WithCancel(context.Background())
	c := &conn{
		name:   port,
		port:   p,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.conn = c
	s.state.Store(int32(StateOpen))

	go s.read(readCtx, c)

	s.logger.Info("Attempting connection", "port", port)
	return nil
}

// Close stops the reader, waits up to the close timeout for it to exit and
// then closes the port, even if the reader is still running. When the reader
// is inside the Handler, Close does not wait; handlers may call it.
func (s *Serial) Close() error {
	s.mu.Lock()
	c := s.conn
	if c == nil {
		s.mu.Unlock()
		return &ConnectionError{Op: "close", Err: ErrNotOpen}
	}
	s.conn = nil
	s.state.Store(int32(StateClosed))
	s.mu.Unlock()

	c.cancel()

	if c.handling.Load() {
		// Possibly called by the handler on the reader goroutine, which
		// cannot finish before Close returns. The reader is not reading now
		// and exits without further delivery once the handler returns.
		s.logger.Debug("Closing while a handler runs, not waiting for the reader", "port", c.name)
	} else {
		s.waitReader(c)
	}

	if err := c.closePort(); err != nil {
		s.logger.Error("Error closing port", "port", c.name, "error", err)
		return &ConnectionError{Op: "close", Port: c.name, Err: err}
	}

	s.logger.Info("Disconnected", "port", c.name)
	return nil
}

// waitReader waits up to the close timeout for c's reader to exit.
func (s *Serial) waitReader(c *conn) {
	timer := time.NewTimer(s.config.closeTimeout)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		s.logger.Warn("Reader did not stop in time, closing port anyway",
			"port", c.name, "timeout", s.config.closeTimeout)
	}
}

// Send writes sentence framed as "$<sentence>*<HH>\r\n". Failures are logged
// and returned; Send never retries or reconnects.
func (s *Serial) Send(sentence string) error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		s.logger.Error("Cannot send, not connected", "sentence", sentence)
		return &ConnectionError{Op: "send", Err: ErrNotOpen}
	}

	frame := nmea.Frame(sentence)

	c.wmu.Lock()
	_, err := c.port.Write([]byte(frame))
	c.wmu.Unlock()

	if err != nil {
		s.logger.Error("Serial write error", "port", c.name, "error", err)
		return &ConnectionError{Op: "send", Port: c.name, Err: err}
	}

	s.logger.Log(context.Background(), LevelTraffic, "Sent", "line", strings.TrimSpace(frame))
	return nil
}

func (s *Serial) IsOpen() bool {
	return State(s.state.Load()) == StateOpen
}

func (s *Serial) Telemetry() *Queue {
	return s.queue
}

// read is the reader goroutine for c. It returns when ctx is cancelled or
// the port fails; nothing is delivered once ctx is cancelled.
func (s *Serial) read(ctx context.Context, c *conn) {
	defer close(c.done)

	buf := make([]byte, readChunk)
	var acc []byte
	resync := false

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := c.port.Read(buf)
		if ctx.Err() != nil {
			return
		}

		// Bytes returned together with an error are still valid.
		if n > 0 {
			acc = appendASCII(acc, buf[:n])
			acc, resync = s.split(ctx, c, acc, resync)
		}
		if err != nil {
			if ctx.Err() == nil {
				s.fail(c, err)
			}
			return
		}

		if n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.pollInterval):
			}
		}
	}
}

// split dispatches every complete line in acc and returns what is left.
// While resync is set the next line is the tail of an oversized line and is
// dropped.
func (s *Serial) split(ctx context.Context, c *conn, acc []byte, resync bool) ([]byte, bool) {
	for {
		advance, token, _ := nmea.Splitter(acc, false)
		if advance == 0 {
			break
		}
		line := string(token)
		acc = acc[advance:]

		if resync {
			resync = false
			continue
		}
		if ctx.Err() != nil {
			return nil, false
		}
		s.dispatch(c, line)
	}

	if len(acc) > s.config.maxLineLength {
		s.logger.Debug("Dropping unterminated input",
			"port", c.name, "bytes", len(acc), "error", ErrLineTooLong)
		return acc[:0], true
	}
	return acc, resync
}

// dispatch classifies one line and routes it to the queue or the handler.
func (s *Serial) dispatch(c *conn, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s.logger.Log(context.Background(), LevelTraffic, "Received", "line", line)

	msg, err := nmea.Parse(line)
	if err != nil {
		s.logger.Debug("Invalid checksum", "line", line, "error", err)
		return
	}

	if nmea.IsTelemetry(msg.Sentence) {
		s.queue.Push(msg.Sentence)
		return
	}
	c.handling.Store(true)
	defer c.handling.Store(false)
	s.handler.HandleSentence(msg.Sentence)
}

// fail tears c down after a read error through the same state transition
// Close uses. The port is closed here because nobody else will.
func (s *Serial) fail(c *conn, err error) {
	if disconnected(err) {
		s.logger.Error("Device disconnected", "port", c.name, "error", err)
	} else {
		s.logger.Error("Serial read error", "port", c.name, "error", err)
	}

	s.mu.Lock()
	if s.conn == c {
		s.conn = nil
		s.state.Store(int32(StateClosed))
	}
	s.mu.Unlock()

	c.cancel()
	if cerr := c.closePort(); cerr != nil {
		s.logger.Error("Error closing port", "port", c.name, "error", cerr)
	}
}

// appendASCII appends the 7-bit bytes of p to dst, dropping the rest.
func appendASCII(dst, p []byte) []byte {
	for _, b := range p {
		if b < 0x80 {
			dst = append(dst, b)
		}
	}
	return dst
}
