package nmea

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Splitter tokenizes the logger's byte stream into lines. It uses the
// signature of bufio.SplitFunc so it can be used with bufio.Scanner or driven
// by hand over an accumulator.
//
// Lines end with LF; a trailing CR is stripped. When atEOF is true any
// remaining bytes are returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, LF); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Parse decodes one received line. Leading and trailing whitespace is ignored.
//
// Lines starting with HEADERS or DATA are bulk messages and pass through
// verbatim without a checksum check. Everything else must be a framed
// sentence with a valid checksum; otherwise Parse returns a Message of class
// ClassInvalid and an error wrapping ErrNoFrame or ErrChecksum.
func Parse(line string) (Message, error) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, CmdHeaders) || strings.HasPrefix(line, CmdData) {
		return Message{Class: ClassBulk, Sentence: line}, nil
	}

	sentence, err := unframe(line)
	if err != nil {
		return Message{Class: ClassInvalid}, fmt.Errorf("parse %q: %w", line, err)
	}
	return Message{Class: ClassFramed, Sentence: sentence}, nil
}

// Classify identifies how line is framed.
func Classify(line string) Class {
	msg, _ := Parse(line)
	return msg.Class
}

// CommandWord returns the first comma-separated token of sentence.
func CommandWord(sentence string) string {
	word, _, _ := strings.Cut(sentence, Sep)
	return word
}

// IsTelemetry reports whether sentence belongs on the telemetry queue
// rather than the synchronous handler.
func IsTelemetry(sentence string) bool {
	return strings.HasPrefix(sentence, CmdData)
}
