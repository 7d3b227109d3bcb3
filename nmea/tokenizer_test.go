package nmea_test

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/openobs/obslink/nmea"
)

func TestSplitter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Framed handshake",
			input:    "$OPENOBS,446*50\r\n",
			expected: []string{"$OPENOBS,446*50"},
		},
		{
			name:     "Bare LF terminators",
			input:    "HEADERS,time,millis\nDATA,0.1,100\n",
			expected: []string{"HEADERS,time,millis", "DATA,0.1,100"},
		},
		{
			name:     "Mixed control and telemetry",
			input:    "$SET,SUCCESS*2D\r\nDATA,1,2,3\r\n$FILE,OPEN,LOG001.TXT*11\r\n",
			expected: []string{"$SET,SUCCESS*2D", "DATA,1,2,3", "$FILE,OPEN,LOG001.TXT*11"},
		},
		{
			name:     "Empty lines",
			input:    "\r\n\nDATA,1\r\n",
			expected: []string{"", "", "DATA,1"},
		},
		{
			name:     "Incomplete line at EOF",
			input:    "$SET,SUCCESS*2D\r\nDATA,1,2",
			expected: []string{"$SET,SUCCESS*2D", "DATA,1,2"},
		},
		{
			name:     "CR without LF stays in the line",
			input:    "DATA,1\r2\n",
			expected: []string{"DATA,1\r2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []string
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(nmea.Splitter)

			for scanner.Scan() {
				tokens = append(tokens, scanner.Text())
			}

			if err := scanner.Err(); err != nil {
				t.Fatalf("Scanner error: %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("Expected %d tokens, got %d.\nExpected: %q\nGot: %q",
					len(tt.expected), len(tokens), tt.expected, tokens)
			}

			for i, expected := range tt.expected {
				if tokens[i] != expected {
					t.Errorf("Token %d: expected %q, got %q", i, expected, tokens[i])
				}
			}
		})
	}
}

func TestSplitterNeedsMoreData(t *testing.T) {
	advance, token, err := nmea.Splitter([]byte("$OPENOBS,4"), false)
	if advance != 0 || token != nil || err != nil {
		t.Errorf("expected request for more data, got advance=%d token=%q err=%v", advance, token, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		class    nmea.Class
		sentence string
		err      error
	}{
		{name: "Framed handshake", input: "$OPENOBS,446*50", class: nmea.ClassFramed, sentence: "OPENOBS,446"},
		{name: "Lowercase checksum", input: "$SET,SUCCESS*2d", class: nmea.ClassFramed, sentence: "SET,SUCCESS"},
		{name: "Surrounding whitespace", input: "  $SDINIT,0*11\r\n", class: nmea.ClassFramed, sentence: "SDINIT,0"},
		{name: "Noise before frame", input: "xx$CLKINIT,0*42", class: nmea.ClassFramed, sentence: "CLKINIT,0"},
		{name: "Trailing bytes after checksum", input: "$READY*4Bjunk", class: nmea.ClassFramed, sentence: "READY"},
		{name: "Data bulk line", input: "DATA,0.1,100,1000", class: nmea.ClassBulk, sentence: "DATA,0.1,100,1000"},
		{name: "Headers bulk line", input: "HEADERS,time,millis", class: nmea.ClassBulk, sentence: "HEADERS,time,millis"},
		{name: "Bulk prefix is case sensitive", input: "data,1,2", class: nmea.ClassInvalid, err: nmea.ErrNoFrame},
		{name: "Framed DATA is checked like any frame", input: "$DATA,1*00", class: nmea.ClassInvalid, err: nmea.ErrChecksum},
		{name: "Bad checksum", input: "$OPENOBS,446*51", class: nmea.ClassInvalid, err: nmea.ErrChecksum},
		{name: "Missing checksum digits", input: "$OPENOBS,446*5", class: nmea.ClassInvalid, err: nmea.ErrNoFrame},
		{name: "Star before dollar", input: "*50$OPENOBS", class: nmea.ClassInvalid, err: nmea.ErrNoFrame},
		{name: "No delimiters", input: "garbage", class: nmea.ClassInvalid, err: nmea.ErrNoFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := nmea.Parse(tt.input)
			if msg.Class != tt.class {
				t.Errorf("Expected class %v, got %v for input %q", tt.class, msg.Class, tt.input)
			}
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Expected error %v, got %v", tt.err, err)
				}
				if msg.Sentence != "" {
					t.Errorf("Expected no sentence for invalid line, got %q", msg.Sentence)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Sentence != tt.sentence {
				t.Errorf("Expected sentence %q, got %q", tt.sentence, msg.Sentence)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input    string
		expected nmea.Class
	}{
		{input: "$OPENOBS,446*50", expected: nmea.ClassFramed},
		{input: "DATA,1", expected: nmea.ClassBulk},
		{input: "HEADERS", expected: nmea.ClassBulk},
		{input: "$OPENOBS,446*00", expected: nmea.ClassInvalid},
		{input: "", expected: nmea.ClassInvalid},
	}

	for _, tt := range tests {
		if got := nmea.Classify(tt.input); got != tt.expected {
			t.Errorf("Classify(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestCommandWord(t *testing.T) {
	tests := map[string]string{
		"OPENOBS,446":           "OPENOBS",
		"SET,SUCCESS":           "SET",
		"READY":                 "READY",
		"":                      "",
		"HEADERS,time,millis,x": "HEADERS",
	}
	for sentence, want := range tests {
		if got := nmea.CommandWord(sentence); got != want {
			t.Errorf("CommandWord(%q) = %q, want %q", sentence, got, want)
		}
	}
}

func TestIsTelemetry(t *testing.T) {
	if !nmea.IsTelemetry("DATA,1,2") {
		t.Error("DATA sentence should be telemetry")
	}
	if nmea.IsTelemetry("HEADERS,time") {
		t.Error("HEADERS sentence should not be telemetry")
	}
	if nmea.IsTelemetry("SET,SUCCESS") {
		t.Error("SET sentence should not be telemetry")
	}
}
