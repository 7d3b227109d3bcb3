package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/openobs/obslink/nmea"
)

// Sample is one parsed DATA sentence.
type Sample struct {
	// Time is when the host drained the sample, not the logger's clock.
	Time time.Time `json:"time"`
	// Serial is the serial number from the handshake, if any.
	Serial string `json:"serial,omitempty"`
	// Headers and Values are paired by index.
	Headers []string  `json:"headers"`
	Values  []float64 `json:"values"`
}

// Map returns the values keyed by column name.
func (s Sample) Map() map[string]float64 {
	m := make(map[string]float64, len(s.Headers))
	for i, h := range s.Headers {
		m[h] = s.Values[i]
	}
	return m
}

// ParseSample pairs the fields of a DATA sentence with headers. Surplus
// fields or headers are ignored; every paired field must be a finite number.
// Loggers print "nan" or "inf" for a failed sensor read, so such lines are
// rejected with ErrNotFinite.
func ParseSample(sentence string, headers []string) (Sample, error) {
	parts := strings.Split(sentence, nmea.Sep)
	if parts[0] != nmea.CmdData {
		return Sample{}, fmt.Errorf("parse sample %q: %w", sentence, ErrNotData)
	}
	if len(headers) == 0 {
		return Sample{}, fmt.Errorf("parse sample %q: %w", sentence, ErrNoHeaders)
	}

	fields := parts[1:]
	n := min(len(fields), len(headers))

	sample := Sample{
		Headers: headers[:n:n],
		Values:  make([]float64, n),
	}
	for i := range n {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("parse sample column %q: %w", headers[i], err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, fmt.Errorf("parse sample column %q: %w", headers[i], ErrNotFinite)
		}
		sample.Values[i] = v
	}
	return sample, nil
}
