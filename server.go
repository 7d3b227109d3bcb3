package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openobs/obslink/device"
	"github.com/openobs/obslink/link"
)

const livePingInterval = 20 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Server handles incoming HTTP requests for inspecting and configuring the
// connected logger
type Server struct {
	Logger  *slog.Logger
	Session *device.Session
	// DefaultPort is opened by POST /connect when no port is given
	DefaultPort string
	// Ports enumerates serial ports for GET /ports
	Ports func() ([]link.PortInfo, error)
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("POST /disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /settings", s.handleSettings)
	mux.HandleFunc("GET /ports", s.handlePorts)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Failed to encode response", "error", err)
	}
}

// statusCode maps link and session errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, device.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, device.ErrNotConnected),
		errors.Is(err, link.ErrAlreadyOpen),
		errors.Is(err, link.ErrNotOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleStatus reports what the logger has told us so far
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Session.State())
}

// handleConnect opens the link, on the requested port or the default one
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	type ConnectRequest struct {
		Port string `json:"port"`
	}

	var req ConnectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Port == "" {
		req.Port = s.DefaultPort
	}
	if req.Port == "" {
		s.sendError(w, "'port' is required", http.StatusBadRequest)
		return
	}

	if err := s.Session.Connect(r.Context(), req.Port); err != nil {
		s.Logger.Error("Failed to connect", "error", err, "port", req.Port)
		s.sendError(w, err.Error(), statusCode(err))
		return
	}

	s.sendJSON(w, s.Session.State())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Disconnect(); err != nil {
		s.sendError(w, err.Error(), statusCode(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSettings starts a logging run with the posted settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	type SettingsRequest struct {
		IntervalSeconds int      `json:"interval_seconds"`
		DelaySeconds    int      `json:"delay_seconds"`
		SensorWords     []string `json:"sensor_words"`
	}

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings := device.Settings{
		Interval:    time.Duration(req.IntervalSeconds) * time.Second,
		Delay:       time.Duration(req.DelaySeconds) * time.Second,
		SensorWords: req.SensorWords,
	}
	if err := s.Session.SendSettings(settings); err != nil {
		s.Logger.Error("Failed to send settings", "error", err)
		s.sendError(w, err.Error(), statusCode(err))
		return
	}

	s.Logger.Info("Settings sent", "interval_seconds", req.IntervalSeconds, "delay_seconds", req.DelaySeconds)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if s.Ports == nil {
		s.sendJSON(w, []link.PortInfo{})
		return
	}
	ports, err := s.Ports()
	if err != nil {
		s.Logger.Error("Failed to list ports", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ports == nil {
		ports = []link.PortInfo{}
	}
	s.sendJSON(w, ports)
}

// handleLive streams every sample to a websocket client as JSON
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	samples, unsubscribe := s.Session.Subscribe()
	defer unsubscribe()

	// The client never sends anything; reading surfaces its close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case sample, ok := <-samples:
			if !ok {
				return
			}
			if err := conn.WriteJSON(sample); err != nil {
				s.Logger.Debug("Websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
