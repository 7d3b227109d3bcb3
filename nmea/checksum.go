package nmea

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFrame is returned when a line lacks a well-formed "$...*HH" frame.
	ErrNoFrame = errors.New("nmea: malformed frame")

	// ErrChecksum is returned when the transmitted checksum does not match
	// the sentence.
	ErrChecksum = errors.New("nmea: checksum mismatch")
)

// Checksum XORs the code points of sentence together and returns the low
// byte as two uppercase hex digits. Checksum("") is "00".
func Checksum(sentence string) string {
	var sum rune
	for _, r := range sentence {
		sum ^= r
	}
	return fmt.Sprintf("%02X", byte(sum))
}

// Frame wraps sentence for the wire as "$<sentence>*<HH>\r\n".
func Frame(sentence string) string {
	return string(Start) + sentence + string(ChecksumAt) + Checksum(sentence) + CRLF
}

// Valid reports whether message carries a "$...*HH" frame whose checksum
// matches the enclosed sentence. The sentence runs from the first '$' to the
// last '*'; the checksum comparison is case-insensitive.
func Valid(message string) bool {
	_, err := unframe(message)
	return err == nil
}

// unframe extracts the sentence of a framed message and verifies its checksum.
func unframe(message string) (string, error) {
	start := strings.IndexByte(message, Start)
	end := strings.LastIndexByte(message, ChecksumAt)
	if start < 0 || end < 0 || start >= end || len(message)-end-1 < 2 {
		return "", ErrNoFrame
	}

	sentence := message[start+1 : end]
	got := message[end+1 : end+3]
	if want := Checksum(sentence); !strings.EqualFold(want, got) {
		return "", fmt.Errorf("%w: got %s, want %s", ErrChecksum, got, want)
	}
	return sentence, nil
}
