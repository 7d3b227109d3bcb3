package device_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/openobs/obslink/device"
)

func TestParseSample(t *testing.T) {
	headers := []string{"time", "millis", "backscatter"}

	tests := []struct {
		name     string
		sentence string
		headers  []string
		want     []float64
		wantCols []string
		wantErr  error
	}{
		{
			name:     "Full row",
			sentence: "DATA,1.500,1500,1012",
			headers:  headers,
			want:     []float64{1.5, 1500, 1012},
			wantCols: headers,
		},
		{
			name:     "Surplus fields are ignored",
			sentence: "DATA,1,2,3,4,5",
			headers:  headers,
			want:     []float64{1, 2, 3},
			wantCols: headers,
		},
		{
			name:     "Missing fields shorten the sample",
			sentence: "DATA,1",
			headers:  headers,
			want:     []float64{1},
			wantCols: []string{"time"},
		},
		{
			name:     "No headers yet",
			sentence: "DATA,1,2,3",
			wantErr:  device.ErrNoHeaders,
		},
		{
			name:     "Not DATA",
			sentence: "HEADERS,time",
			headers:  headers,
			wantErr:  device.ErrNotData,
		},
		{
			name:     "NaN is rejected",
			sentence: "DATA,nan,2",
			headers:  headers,
			wantErr:  device.ErrNotFinite,
		},
		{
			name:     "Infinity is rejected",
			sentence: "DATA,1,-Inf",
			headers:  headers,
			wantErr:  device.ErrNotFinite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := device.ParseSample(tt.sentence, tt.headers)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got.Values, tt.want) {
				t.Errorf("values = %v, want %v", got.Values, tt.want)
			}
			if !slices.Equal(got.Headers, tt.wantCols) {
				t.Errorf("headers = %v, want %v", got.Headers, tt.wantCols)
			}
		})
	}
}

func TestParseSampleRejectsNonNumeric(t *testing.T) {
	_, err := device.ParseSample("DATA,1,abc", []string{"time", "millis"})
	if err == nil {
		t.Fatal("expected error for non-numeric field")
	}
}

func TestSampleMap(t *testing.T) {
	s, err := device.ParseSample("DATA,2.5,99", []string{"time", "battery"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := s.Map()
	if m["time"] != 2.5 || m["battery"] != 99 {
		t.Errorf("unexpected map %v", m)
	}
}
