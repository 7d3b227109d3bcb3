package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/openobs/obslink/device"
)

// CSV writes one header row per HEADERS announcement followed by one row of
// values per sample, flushing after every record.
type CSV struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	closed bool
}

// NewCSV writes to w. If w is an io.Closer it is closed by Close.
func NewCSV(w io.Writer) *CSV {
	c := &CSV{w: csv.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// CreateCSV creates or truncates the file at path.
func CreateCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: create %s: %w", path, err)
	}
	return NewCSV(f), nil
}

func (c *CSV) WriteHeaders(_ string, headers []string) error {
	return c.write(headers)
}

func (c *CSV) WriteSample(sample device.Sample) error {
	row := make([]string, len(sample.Values))
	for i, v := range sample.Values {
		row[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return c.write(row)
}

func (c *CSV) write(row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("record: csv write: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("record: csv flush: %w", err)
	}
	return nil
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		err = errors.Join(err, c.closer.Close())
	}
	return err
}
