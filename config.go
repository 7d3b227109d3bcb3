package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the logger's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the logger
	BaudRate int
	// ReadTimeout bounds a single read from the serial port
	ReadTimeout time.Duration
	// LogLevel sets the logging level ("traffic", "debug", "info", "warn", "error")
	LogLevel string
	// Simulate replaces the serial port with a simulated logger
	Simulate bool
	// Sensor is the sensor type the simulated logger announces
	Sensor string
	// RecordCSV is a file receiving telemetry as CSV, if set
	RecordCSV string
	// RecordDB is a SQLite database receiving telemetry, if set
	RecordDB string
}

// fileConfig maps the keys of the TOML config file.
type fileConfig struct {
	BindAddress string `toml:"bind_address"`
	SerialPort  string `toml:"serial_port"`
	BaudRate    int    `toml:"baud_rate"`
	ReadTimeout string `toml:"read_timeout"`
	LogLevel    string `toml:"log_level"`
	Simulate    bool   `toml:"simulate"`
	Sensor      string `toml:"sensor"`
	RecordCSV   string `toml:"record_csv"`
	RecordDB    string `toml:"record_db"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "127.0.0.1:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 250000
		c.ReadTimeout = 100 * time.Millisecond
		c.LogLevel = "info"
		c.Sensor = "VCNL4010"
		return nil
	}
}

// WithFile overlays the keys defined in a TOML file. An empty path is a
// no-op.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
		}

		if meta.IsDefined("bind_address") {
			c.BindAddress = strings.TrimSpace(raw.BindAddress)
		}
		if meta.IsDefined("serial_port") {
			c.SerialPort = strings.TrimSpace(raw.SerialPort)
		}
		if meta.IsDefined("baud_rate") {
			c.BaudRate = raw.BaudRate
		}
		if meta.IsDefined("read_timeout") {
			d, err := time.ParseDuration(raw.ReadTimeout)
			if err != nil {
				return fmt.Errorf("load config %s: read_timeout: %w", path, err)
			}
			c.ReadTimeout = d
		}
		if meta.IsDefined("log_level") {
			c.LogLevel = strings.TrimSpace(raw.LogLevel)
		}
		if meta.IsDefined("simulate") {
			c.Simulate = raw.Simulate
		}
		if meta.IsDefined("sensor") {
			c.Sensor = strings.TrimSpace(raw.Sensor)
		}
		if meta.IsDefined("record_csv") {
			c.RecordCSV = strings.TrimSpace(raw.RecordCSV)
		}
		if meta.IsDefined("record_db") {
			c.RecordDB = strings.TrimSpace(raw.RecordDB)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("OBS_BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("OBS_SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("OBS_BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if timeout := os.Getenv("OBS_READ_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.ReadTimeout = d
			}
		}

		if level := os.Getenv("OBS_LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if simulate := os.Getenv("OBS_SIMULATE"); simulate != "" {
			if b, err := strconv.ParseBool(simulate); err == nil {
				c.Simulate = b
			}
		}

		if sensor := os.Getenv("OBS_SENSOR"); sensor != "" {
			c.Sensor = sensor
		}

		if path := os.Getenv("OBS_RECORD_CSV"); path != "" {
			c.RecordCSV = path
		}

		if path := os.Getenv("OBS_RECORD_DB"); path != "" {
			c.RecordDB = path
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "read-timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.ReadTimeout = d
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "simulate":
				if b, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.Simulate = b
				}
			case "sensor":
				c.Sensor = f.Value.String()
			case "record-csv":
				c.RecordCSV = f.Value.String()
			case "record-db":
				c.RecordDB = f.Value.String()
			}
		})
		return nil
	}
}
