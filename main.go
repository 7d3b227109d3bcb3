package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openobs/obslink/device"
	"github.com/openobs/obslink/link"
	"github.com/openobs/obslink/record"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the logger is attached to")
	flag.Int("baud-rate", link.DefaultBaudRate, "Baud rate for serial communication")
	flag.Duration("read-timeout", link.DefaultReadTimeout, "Timeout of a single serial read")
	flag.Bool("simulate", false, "Use a simulated logger instead of the serial port")
	flag.String("sensor", "VCNL4010", "Sensor type announced by the simulated logger")
	flag.String("bind-address", "127.0.0.1:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (traffic, debug, info, warn, error)")
	flag.String("record-csv", "", "Write telemetry to this CSV file")
	flag.String("record-db", "", "Write telemetry to this SQLite database")
	flag.Parse()

	if *listPorts {
		ports, err := link.ListPorts()
		if err != nil {
			slog.Error("Failed to list ports", "error", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(ports)
		return
	}

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:       parseLevel(config.LogLevel),
		ReplaceAttr: replaceLevel,
	}))

	if err := run(config, logger); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "traffic":
		return link.LevelTraffic
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceLevel names the traffic level instead of printing "DEBUG-4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == link.LevelTraffic {
			a.Value = slog.StringValue("TRAFFIC")
		}
	}
	return a
}

func openRecorders(config *Config) ([]record.Recorder, error) {
	var recorders []record.Recorder
	if config.RecordCSV != "" {
		c, err := record.CreateCSV(config.RecordCSV)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, c)
	}
	if config.RecordDB != "" {
		db, err := record.OpenSQLite(config.RecordDB)
		if err != nil {
			for _, r := range recorders {
				r.Close()
			}
			return nil, err
		}
		recorders = append(recorders, db)
	}
	return recorders, nil
}

func run(config *Config, logger *slog.Logger) error {
	recorders, err := openRecorders(config)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range recorders {
			if err := r.Close(); err != nil {
				logger.Error("Failed to close recorder", "error", err)
			}
		}
	}()

	builder := device.NewConfigBuilder().
		WithLogger(logger.With("component", "device"))
	for _, r := range recorders {
		builder.WithRecorder(r)
	}
	sessionConfig, err := builder.Build()
	if err != nil {
		return err
	}
	session := device.NewSession(sessionConfig)

	l, err := newLink(config, logger.With("component", "link"), session)
	if err != nil {
		return err
	}
	session.Bind(l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting OpenOBS link", "port", config.SerialPort, "simulate", config.Simulate)
	if err := session.Connect(ctx, config.SerialPort); err != nil {
		// The port can be connected later through the HTTP API.
		logger.Error("Failed to open logger port", "error", err)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:      logger.With("component", "server"),
			Session:     session,
			DefaultPort: config.SerialPort,
			Ports:       link.ListPorts,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Poll(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		if err := l.Close(); err != nil && !errors.Is(err, link.ErrNotOpen) {
			logger.Error("Failed to close logger connection", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLink(config *Config, logger *slog.Logger, h link.Handler) (link.Link, error) {
	if config.Simulate {
		return link.NewSimulator(link.SimConfig{
			SensorType: config.Sensor,
			Logger:     logger,
		}, h), nil
	}

	linkConfig, err := link.NewConfigBuilder().
		WithDialer(link.SerialDialer{
			BaudRate:    config.BaudRate,
			ReadTimeout: config.ReadTimeout,
		}).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}
	return link.NewSerial(linkConfig, h), nil
}
