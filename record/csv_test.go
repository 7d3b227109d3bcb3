package record_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openobs/obslink/device"
	"github.com/openobs/obslink/record"
)

func TestCSV(t *testing.T) {
	var buf strings.Builder
	c := record.NewCSV(&buf)

	if err := c.WriteHeaders("446", []string{"time", "millis", "battery"}); err != nil {
		t.Fatalf("unexpected error from WriteHeaders(): %v", err)
	}
	sample := device.Sample{
		Time:    time.Now(),
		Headers: []string{"time", "millis", "battery"},
		Values:  []float64{0.1, 100, 104.25},
	}
	if err := c.WriteSample(sample); err != nil {
		t.Fatalf("unexpected error from WriteSample(): %v", err)
	}

	want := "time,millis,battery\n0.1,100,104.25\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error from Close(): %v", err)
	}
	if err := c.WriteSample(sample); !errors.Is(err, record.ErrClosed) {
		t.Errorf("expected ErrClosed, got: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("expected second Close to succeed, got: %v", err)
	}
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")

	c, err := record.CreateCSV(path)
	if err != nil {
		t.Fatalf("unexpected error from CreateCSV(): %v", err)
	}
	if err := c.WriteHeaders("", []string{"time"}); err != nil {
		t.Fatalf("unexpected error from WriteHeaders(): %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error from Close(): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading file: %v", err)
	}
	if string(data) != "time\n" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestCreateCSVMissingDir(t *testing.T) {
	_, err := record.CreateCSV(filepath.Join(t.TempDir(), "missing", "run.csv"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
