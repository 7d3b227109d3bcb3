package link

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// TestPort is a test helper that behaves like a serial port with a read
// timeout: Read returns data queued with SendData, or 0, nil after the
// timeout elapses. Exported for use in tests of dependent packages.
type TestPort struct {
	mu       sync.Mutex
	readChan chan []byte
	errChan  chan error
	done     chan struct{}
	closed   bool
	written  bytes.Buffer
	writeErr error
	timeout  time.Duration

	// pending holds the unread rest of a chunk; only touched by Read.
	pending []byte
}

// NewTestPort creates a new test port whose reads time out after 10ms.
func NewTestPort() *TestPort {
	return &TestPort{
		readChan: make(chan []byte, 256),
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
		timeout:  10 * time.Millisecond,
	}
}

func (t *TestPort) Read(p []byte) (n int, err error) {
	if len(t.pending) > 0 {
		n = copy(p, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}

	select {
	case data := <-t.readChan:
		n = copy(p, data)
		t.pending = data[n:]
		return n, nil
	case err := <-t.errChan:
		return 0, err
	case <-t.done:
		return 0, io.EOF
	case <-time.After(t.timeout):
		return 0, nil
	}
}

func (t *TestPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	return t.written.Write(p)
}

func (t *TestPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

// SendData queues data to be read from the port.
// This simulates bytes arriving from the logger.
func (t *TestPort) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Fail makes the next Read return err.
func (t *TestPort) Fail(err error) {
	t.errChan <- err
}

// FailWrites makes every later Write return err.
func (t *TestPort) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns everything written to the port so far.
func (t *TestPort) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// Closed reports whether Close has been called.
func (t *TestPort) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// TestDialer hands out a fixed Port.
type TestDialer struct {
	Port Port
	Err  error
}

func (d TestDialer) Dial(ctx context.Context, _ string) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Port, d.Err
}
