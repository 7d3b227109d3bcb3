// Package nmea implements the line protocol spoken by OpenOBS data loggers:
// NMEA-style "$<sentence>*<HH>" framing with an XOR checksum for control
// traffic, and unframed HEADERS/DATA bulk lines for telemetry.
package nmea

const (
	// Framing
	Start      = '$'
	ChecksumAt = '*'
	CRLF       = "\r\n"
	LF         = '\n'

	// Word separator inside a sentence
	Sep = ","
)

// Command words sent by the logger or the host.
const (
	CmdOpenOBS = "OPENOBS" // handshake, argument is the serial number
	CmdSensor  = "SENSOR"  // sensor type announcement
	CmdReady   = "READY"   // legacy sensor announcement (implies VCNL4010)
	CmdSet     = "SET"     // settings command / acknowledgement
	CmdFile    = "FILE"    // FILE,OPEN,<name>
	CmdHeaders = "HEADERS" // ordered telemetry column names
	CmdData    = "DATA"    // one telemetry sample
	CmdSDInit  = "SDINIT"  // SDINIT,0 reports SD card failure
	CmdClkInit = "CLKINIT" // CLKINIT,0 reports RTC failure

	WordSuccess = "SUCCESS"
	WordOpen    = "OPEN"
	WordFailed  = "0"
)

// Class tells how a received line was framed.
type Class int

const (
	ClassInvalid Class = iota // failed framing or checksum
	ClassFramed               // $...*HH with a valid checksum
	ClassBulk                 // HEADERS or DATA, exempt from framing
)

func (c Class) String() string {
	switch c {
	case ClassFramed:
		return "framed"
	case ClassBulk:
		return "bulk"
	default:
		return "invalid"
	}
}

// Message is one decoded line.
type Message struct {
	Class    Class
	Sentence string
}
