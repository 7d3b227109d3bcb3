package device

import "errors"

var (
	// ErrNoLink is returned when a Session is used before a Link was bound
	// with Bind.
	ErrNoLink = errors.New("no link bound to session")

	// ErrNotConnected is returned when settings are sent before the logger
	// completed the OPENOBS handshake.
	//
	// Callers should wait for State().Handshake before configuring the
	// device.
	ErrNotConnected = errors.New("device handshake not completed")

	// ErrInvalidSettings is returned for settings the firmware cannot
	// represent, such as a negative sample interval.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrNoHeaders is returned when a DATA sentence arrives before the
	// logger announced its column names.
	ErrNoHeaders = errors.New("telemetry headers not received")

	// ErrNotFinite is returned when a DATA field is NaN or infinite.
	ErrNotFinite = errors.New("telemetry value is not finite")

	// ErrNotData is returned when a sentence handed to ParseSample is not a
	// DATA sentence.
	ErrNotData = errors.New("not a DATA sentence")
)
