// Package device is the consumer side of a logger link: it answers the
// handshake, tracks what the logger reported about itself, configures runs
// and turns queued telemetry into samples for recorders and live viewers.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/openobs/obslink/link"
	"github.com/openobs/obslink/nmea"
)

// Default sensor of loggers that announce themselves with READY.
const LegacySensor = "VCNL4010"

// State is a snapshot of what the logger reported.
type State struct {
	Port      string `json:"port,omitempty"`
	Connected bool   `json:"connected"`
	// Handshake is set once OPENOBS was received on this connection.
	Handshake     bool     `json:"handshake"`
	Serial        string   `json:"serial,omitempty"`
	Sensor        string   `json:"sensor,omitempty"`
	SettingsAcked bool     `json:"settings_acked"`
	LogFile       string   `json:"log_file,omitempty"`
	Headers       []string `json:"headers,omitempty"`
	Faults        []string `json:"faults,omitempty"`
	Samples       uint64   `json:"samples"`
	QueueDepth    int      `json:"queue_depth"`
}

// Session interprets everything a logger sends. It is the link.Handler of
// the Link it is bound to.
type Session struct {
	config Config
	logger *slog.Logger

	// mu guards link, state and subs. It is never held while calling into
	// the link, because links may deliver sentences synchronously.
	mu    sync.Mutex
	link  link.Link
	state State
	subs  map[chan Sample]struct{}

	// recMu serializes recorder calls from the handler and from Poll.
	recMu sync.Mutex
}

var _ link.Handler = (*Session)(nil)

func NewSession(config Config) *Session {
	config.setDefaults()
	return &Session{
		config: config,
		logger: config.logger,
		subs:   make(map[chan Sample]struct{}),
	}
}

// Bind attaches the Link whose sentences the session handles. The link must
// have been created with the session as its Handler.
func (s *Session) Bind(l link.Link) {
	s.mu.Lock()
	s.link = l
	s.mu.Unlock()
}

func (s *Session) boundLink() (link.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil {
		return nil, ErrNoLink
	}
	return s.link, nil
}

// Connect forgets everything learned from a previous connection and opens
// the link on port.
func (s *Session) Connect(ctx context.Context, port string) error {
	l, err := s.boundLink()
	if err != nil {
		return err
	}
	if l.IsOpen() {
		return fmt.Errorf("connect %s: %w", port, link.ErrAlreadyOpen)
	}

	s.mu.Lock()
	s.state = State{Port: port}
	s.mu.Unlock()

	if err := l.Open(ctx, port); err != nil {
		return err
	}
	s.logger.Info("Connected, waiting for handshake", "port", port)
	return nil
}

// Disconnect closes the link. The handshake is forgotten even when the link
// had already gone down on its own.
func (s *Session) Disconnect() error {
	l, err := s.boundLink()
	if err != nil {
		return err
	}
	err = l.Close()

	s.mu.Lock()
	s.state.Handshake = false
	s.mu.Unlock()
	return err
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	st := s.state
	l := s.link
	s.mu.Unlock()

	st.Headers = slices.Clone(st.Headers)
	st.Faults = slices.Clone(st.Faults)
	if l != nil {
		st.Connected = l.IsOpen()
		st.QueueDepth = l.Telemetry().Len()
	}
	return st
}

// HandleSentence interprets one control sentence. Unknown sentences are
// logged and ignored.
func (s *Session) HandleSentence(sentence string) {
	parts := strings.Split(sentence, nmea.Sep)
	command := strings.ToUpper(parts[0])
	arg := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	switch {
	case command == nmea.CmdOpenOBS:
		s.mu.Lock()
		s.state.Handshake = true
		s.state.Serial = arg(1)
		s.mu.Unlock()
		s.logger.Info("Device handshake received", "serial", arg(1))
		s.reply(nmea.CmdOpenOBS)

	case command == nmea.CmdSensor || command == nmea.CmdReady:
		sensor := arg(1)
		if command == nmea.CmdReady {
			sensor = LegacySensor
		}
		s.mu.Lock()
		s.state.Sensor = sensor
		s.mu.Unlock()
		s.logger.Info("Sensor configured", "sensor", sensor)

	case command == nmea.CmdSet && strings.EqualFold(arg(1), nmea.WordSuccess):
		s.mu.Lock()
		s.state.SettingsAcked = true
		s.mu.Unlock()
		s.logger.Info("Settings received successfully")

	case command == nmea.CmdFile && strings.EqualFold(arg(1), nmea.WordOpen):
		name := arg(2)
		if name == "" {
			name = "UNKNOWN"
		}
		s.mu.Lock()
		s.state.LogFile = name
		s.mu.Unlock()
		s.logger.Info("Device logging to file", "file", name)

	case command == nmea.CmdHeaders:
		headers := make([]string, 0, len(parts)-1)
		for i := 1; i < len(parts); i++ {
			headers = append(headers, arg(i))
		}
		s.mu.Lock()
		s.state.Headers = headers
		serial := s.state.Serial
		s.mu.Unlock()
		s.logger.Info("Headers", "headers", headers)
		s.recordHeaders(serial, headers)

	case command == nmea.CmdSDInit && arg(1) == nmea.WordFailed:
		s.fault("SD card initialization failed")

	case command == nmea.CmdClkInit && arg(1) == nmea.WordFailed:
		s.fault("RTC initialization failed")

	default:
		s.logger.Warn("Unknown serial message", "sentence", sentence)
	}
}

func (s *Session) fault(msg string) {
	s.mu.Lock()
	s.state.Faults = append(s.state.Faults, msg)
	s.mu.Unlock()
	s.logger.Error("Device fault", "fault", msg)
}

func (s *Session) reply(sentence string) {
	l, err := s.boundLink()
	if err != nil {
		s.logger.Error("Cannot reply", "sentence", sentence, "error", err)
		return
	}
	if err := l.Send(sentence); err != nil {
		s.logger.Error("Failed to reply", "sentence", sentence, "error", err)
	}
}

// SendSettings configures a logging run. The handshake must have completed.
// A negative delay is treated as an immediate start.
func (s *Session) SendSettings(settings Settings) error {
	l, err := s.boundLink()
	if err != nil {
		return err
	}
	if err := settings.validate(); err != nil {
		return err
	}
	if settings.Delay < 0 {
		s.logger.Warn("Delay start time is in the past, starting immediately", "delay", settings.Delay)
		settings.Delay = 0
	}

	s.mu.Lock()
	if !s.state.Handshake || !l.IsOpen() {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.state.SettingsAcked = false
	s.mu.Unlock()

	sentence := settings.Sentence(s.config.now())
	if err := l.Send(sentence); err != nil {
		return fmt.Errorf("send settings: %w", err)
	}
	s.logger.Info("Settings sent, awaiting confirmation",
		"interval", settings.Interval, "delay", settings.Delay)
	return nil
}

// Subscribe returns a channel receiving every sample drained from now on,
// and a function that ends the subscription and closes the channel. Samples
// are dropped for subscribers that fall behind.
func (s *Session) Subscribe() (<-chan Sample, func()) {
	ch := make(chan Sample, s.config.subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Poll drains the telemetry queue every poll interval until ctx is done.
// It returns nil once ctx is cancelled.
func (s *Session) Poll(ctx context.Context) error {
	l, err := s.boundLink()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(s.config.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.drain(l.Telemetry())
		}
	}
}

// drain processes everything currently queued and returns the number of
// samples parsed.
func (s *Session) drain(q *link.Queue) int {
	if depth := q.Len(); depth > s.config.queueWarnDepth {
		s.logger.Warn("Serial queue size is high", "depth", depth)
	}

	items := q.Drain()
	if len(items) == 0 {
		return 0
	}

	s.mu.Lock()
	headers := s.state.Headers
	serial := s.state.Serial
	s.mu.Unlock()

	samples := make([]Sample, 0, len(items))
	for _, sentence := range items {
		if nmea.CommandWord(sentence) == nmea.CmdHeaders {
			// Columns may change between samples of one drain.
			s.HandleSentence(sentence)
			s.mu.Lock()
			headers = s.state.Headers
			s.mu.Unlock()
			continue
		}
		if !nmea.IsTelemetry(sentence) {
			s.logger.Error("Non data message passed to data queue", "sentence", sentence)
			continue
		}
		sample, err := ParseSample(sentence, headers)
		if err != nil {
			s.logger.Warn("Dropping sample", "sentence", sentence, "error", err)
			continue
		}
		sample.Time = s.config.now()
		sample.Serial = serial
		samples = append(samples, sample)
		s.logger.Debug("Sample", "values", sample.Values)
	}

	s.recordSamples(samples)
	s.publish(samples)
	return len(samples)
}

func (s *Session) recordHeaders(serial string, headers []string) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	for _, r := range s.config.recorders {
		if err := r.WriteHeaders(serial, headers); err != nil {
			s.logger.Error("File logging error", "error", err)
		}
	}
}

func (s *Session) recordSamples(samples []Sample) {
	if len(samples) == 0 {
		return
	}
	s.recMu.Lock()
	defer s.recMu.Unlock()
	for _, r := range s.config.recorders {
		for _, sample := range samples {
			if err := r.WriteSample(sample); err != nil {
				s.logger.Error("File logging error", "error", err)
			}
		}
	}
}

func (s *Session) publish(samples []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Samples += uint64(len(samples))
	for ch := range s.subs {
		for _, sample := range samples {
			select {
			case ch <- sample:
			default:
			}
		}
	}
}
