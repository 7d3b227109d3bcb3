package link

import (
	"log/slog"
	"time"
)

// LevelTraffic is the log level for every raw line received or sent. It sits
// below slog.LevelDebug so line traffic can be silenced independently.
const LevelTraffic = slog.LevelDebug - 4

// Config holds the settings of a Serial link. Build one with
// NewConfigBuilder.
type Config struct {
	dialer        Dialer
	pollInterval  time.Duration
	closeTimeout  time.Duration
	maxLineLength int
	logger        *slog.Logger
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.pollInterval <= 0 {
		c.pollInterval = 50 * time.Millisecond
	}
	if c.closeTimeout <= 0 {
		c.closeTimeout = time.Second
	}
	if c.maxLineLength <= 0 {
		c.maxLineLength = 4096
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets how ports are opened. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithPollInterval sets how long the reader waits after an empty read.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.pollInterval = d
	return b
}

// WithCloseTimeout bounds how long Close waits for the reader to exit
// before releasing the port anyway.
func (b *ConfigBuilder) WithCloseTimeout(d time.Duration) *ConfigBuilder {
	b.config.closeTimeout = d
	return b
}

// WithMaxLineLength caps the unterminated bytes the reader buffers.
func (b *ConfigBuilder) WithMaxLineLength(n int) *ConfigBuilder {
	b.config.maxLineLength = n
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
