package device

import (
	"errors"
	"log/slog"
	"time"
)

// Config holds the settings of a Session. Build one with NewConfigBuilder.
type Config struct {
	// pollInterval is the pause between telemetry queue drains
	pollInterval time.Duration
	// queueWarnDepth is the backlog above which a drain logs a warning
	queueWarnDepth int
	// recorders receive headers and every parsed sample
	recorders []Recorder
	// subscriberBuffer is the channel capacity of each live subscriber
	subscriberBuffer int
	logger           *slog.Logger
	// now stamps settings and samples
	now func() time.Time
}

func (c *Config) validate() error {
	if c.pollInterval < 0 {
		return errors.New("poll interval must not be negative")
	}
	if c.queueWarnDepth < 0 {
		return errors.New("queue warn depth must not be negative")
	}
	for _, r := range c.recorders {
		if r == nil {
			return errors.New("recorder must not be nil")
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.pollInterval == 0 {
		c.pollInterval = 100 * time.Millisecond
	}
	if c.queueWarnDepth == 0 {
		c.queueWarnDepth = 50
	}
	if c.subscriberBuffer <= 0 {
		c.subscriberBuffer = 64
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithPollInterval sets how often Poll drains the telemetry queue.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.pollInterval = d
	return b
}

// WithQueueWarnDepth sets the backlog that triggers a warning.
func (b *ConfigBuilder) WithQueueWarnDepth(n int) *ConfigBuilder {
	b.config.queueWarnDepth = n
	return b
}

// WithRecorder adds a sink for headers and samples. May be called more than
// once.
func (b *ConfigBuilder) WithRecorder(r Recorder) *ConfigBuilder {
	b.config.recorders = append(b.config.recorders, r)
	return b
}

func (b *ConfigBuilder) WithSubscriberBuffer(n int) *ConfigBuilder {
	b.config.subscriberBuffer = n
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// WithClock replaces time.Now.
func (b *ConfigBuilder) WithClock(now func() time.Time) *ConfigBuilder {
	b.config.now = now
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	c.recorders = append([]Recorder(nil), b.config.recorders...)
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
