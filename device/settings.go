package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openobs/obslink/nmea"
)

// Settings configure a logging run.
type Settings struct {
	// Interval between measurements, truncated to whole seconds. Zero means
	// continuous sampling.
	Interval time.Duration
	// Delay before the first measurement, truncated to whole seconds.
	Delay time.Duration
	// SensorWords are sensor-specific trailing fields, passed through as is.
	SensorWords []string
}

func (s Settings) validate() error {
	if s.Interval < 0 {
		return fmt.Errorf("%w: interval %v is negative", ErrInvalidSettings, s.Interval)
	}
	for _, w := range s.SensorWords {
		if strings.ContainsAny(w, ",$*\r\n") {
			return fmt.Errorf("%w: sensor word %q contains a reserved character", ErrInvalidSettings, w)
		}
	}
	return nil
}

// Sentence renders the SET command for a run configured at now:
//
//	SET,<unix seconds>,<interval s>,<delay s>,<sensor words...>
//
// The comma after the delay is always present, so a run without sensor
// words ends in a trailing comma.
func (s Settings) Sentence(now time.Time) string {
	var b strings.Builder
	b.WriteString(nmea.CmdSet)
	for _, v := range []int64{now.Unix(), int64(s.Interval / time.Second), int64(s.Delay / time.Second)} {
		b.WriteString(nmea.Sep)
		b.WriteString(strconv.FormatInt(v, 10))
	}
	b.WriteString(nmea.Sep)
	b.WriteString(strings.Join(s.SensorWords, nmea.Sep))
	return b.String()
}
