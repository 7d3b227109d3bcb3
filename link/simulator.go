package link

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openobs/obslink/nmea"
)

const (
	// SimHandshake is the greeting a simulated logger sends on connect.
	SimHandshake = "OPENOBS,000"
	// SimHeaders are the telemetry columns of a simulated logger.
	SimHeaders = "HEADERS,time,millis,ambient_light,backscatter,pressure,water_temp,battery"
)

// SimConfig holds the settings of a Simulator.
type SimConfig struct {
	// SensorType is announced in reply to the handshake. Defaults to
	// "VCNL4010".
	SensorType string
	// Interval between DATA samples. Defaults to 100ms.
	Interval time.Duration
	// Rand drives the signal noise. Defaults to a time-seeded source.
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (c *SimConfig) setDefaults() {
	if c.SensorType == "" {
		c.SensorType = "VCNL4010"
	}
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// Simulator is a Link that pretends to be a data logger. Instead of reading
// bytes it answers commands the way the firmware does and, once settings are
// acknowledged, generates telemetry on a timer.
//
// The handler is invoked on the goroutine calling Open or Send; the
// telemetry generator only writes to the queue.
type Simulator struct {
	config  SimConfig
	handler Handler
	logger  *slog.Logger
	queue   *Queue

	state atomic.Int32

	// mu guards gen and serializes state transitions with starting and
	// detaching it. Never held while calling the handler.
	mu  sync.Mutex
	gen *generator
}

type generator struct {
	cancel  context.CancelFunc
	started chan struct{}
	done    chan struct{}
}

// NewSimulator creates a closed Simulator delivering sentences to h.
func NewSimulator(config SimConfig, h Handler) *Simulator {
	config.setDefaults()
	if h == nil {
		h = HandlerFunc(func(string) {})
	}
	return &Simulator{
		config:  config,
		handler: h,
		logger:  config.Logger,
		queue:   NewQueue(),
	}
}

// Open marks the link open and delivers the handshake synchronously. The
// port name is only logged.
func (s *Simulator) Open(_ context.Context, port string) error {
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
		s.mu.Unlock()
		return &ConnectionError{Op: "open", Port: port, Err: ErrAlreadyOpen}
	}
	s.queue.Reset()
	s.mu.Unlock()

	s.logger.Info("Attempting connection", "port", port, "simulated", true)
	s.deliver(SimHandshake)
	return nil
}

// Close stops the telemetry generator and marks the link closed. It may be
// called from the handler.
func (s *Simulator) Close() error {
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
		s.mu.Unlock()
		return &ConnectionError{Op: "close", Err: ErrNotOpen}
	}
	g := s.gen
	s.gen = nil
	s.mu.Unlock()

	s.stopGenerator(g)
	s.logger.Info("Disconnected", "simulated", true)
	return nil
}

// Send answers sentence as the firmware would: OPENOBS is answered with the
// sensor type, SET with SET,SUCCESS followed by the start of telemetry.
// Other commands are accepted silently.
func (s *Simulator) Send(sentence string) error {
	if !s.IsOpen() {
		s.logger.Error("Cannot send, not connected", "sentence", sentence)
		return &ConnectionError{Op: "send", Err: ErrNotOpen}
	}
	s.logger.Log(context.Background(), LevelTraffic, "Sent",
		"line", strings.TrimSpace(nmea.Frame(sentence)))

	switch nmea.CommandWord(sentence) {
	case nmea.CmdOpenOBS:
		s.deliver(nmea.CmdSensor + nmea.Sep + s.config.SensorType)
	case nmea.CmdSet:
		s.deliver(nmea.CmdSet + nmea.Sep + nmea.WordSuccess)
		s.startGenerator()
	}
	return nil
}

func (s *Simulator) IsOpen() bool {
	return State(s.state.Load()) == StateOpen
}

func (s *Simulator) Telemetry() *Queue {
	return s.queue
}

func (s *Simulator) deliver(sentence string) {
	s.logger.Log(context.Background(), LevelTraffic, "Received", "line", sentence)
	s.handler.HandleSentence(sentence)
}

// startGenerator announces the columns and starts the sample goroutine.
// Only one generator runs at a time, and none once the link is closed.
func (s *Simulator) startGenerator() {
	s.mu.Lock()
	if !s.IsOpen() {
		s.mu.Unlock()
		s.logger.Debug("Link closed, not starting telemetry generator")
		return
	}
	if s.gen != nil {
		s.mu.Unlock()
		s.logger.Debug("Telemetry generator already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g := &generator{
		cancel:  cancel,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.gen = g
	go s.generate(ctx, g)
	s.mu.Unlock()

	// Samples wait for HEADERS so consumers can pair them with columns. A
	// handler closing the link here cancels g before it produces anything.
	s.deliver(SimHeaders)
	close(g.started)

	s.logger.Info("Started sending data", "interval", s.config.Interval)
}

// stopGenerator cancels g, if any, and waits for it.
func (s *Simulator) stopGenerator(g *generator) {
	if g == nil {
		s.logger.Debug("No telemetry generator to stop")
		return
	}
	g.cancel()
	<-g.done
	s.logger.Info("Stopped sending data")
}

func (s *Simulator) generate(ctx context.Context, g *generator) {
	defer close(g.done)

	select {
	case <-ctx.Done():
		return
	case <-g.started:
	}

	start := time.Now()
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.queue.Push(s.sample(now.Sub(start)))
		}
	}
}

// sample renders one DATA sentence: four noisy sinusoids and a battery
// reading that slowly drifts down.
func (s *Simulator) sample(elapsed time.Duration) string {
	t := elapsed.Seconds()
	ambient := s.noisySinusoid(1000, 100, 0.1, t)
	backscatter := s.noisySinusoid(1000, 100, 0.1, t)
	pressure := s.noisySinusoid(1000, 100, 0.1, t)
	waterTemp := s.noisySinusoid(1000, 100, 0.1, t)
	battery := 105 + s.config.Rand.NormFloat64() - 0.01*t

	return fmt.Sprintf("%s,%.3f,%d,%d,%d,%d,%d,%.2f", nmea.CmdData,
		t, elapsed.Milliseconds(), ambient, backscatter, pressure, waterTemp, battery)
}

func (s *Simulator) noisySinusoid(mu, amp, freq, t float64) int {
	wave := amp * math.Sin(2*math.Pi*freq*t)
	noise := s.config.Rand.NormFloat64() * amp / 2
	return int(mu + wave + noise)
}
