package blob

import (
	"errors"
	"testing"

	"github.com/franz/jukebox/internal/util"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Range
	}{
		{"inclusive", "bytes=0-99", Range{Kind: RangeInclusive, Start: 0, End: 99}},
		{"single byte", "bytes=5-5", Range{Kind: RangeInclusive, Start: 5, End: 5}},
		{"open", "bytes=500-", Range{Kind: RangeOpen, Start: 500}},
		{"suffix", "bytes=-200", Range{Kind: RangeSuffix, Length: 200}},
		{"spaces", " bytes = 10 - 20 ", Range{Kind: RangeInclusive, Start: 10, End: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header)
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("ParseRange(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	headers := []string{
		"",
		"bytes",
		"bytes=abc",
		"bytes=a-b",
		"bytes=-",
		"bytes=10-5",
		"items=0-10",
		"bytes=0-10,20-30",
		"bytes=-1-2",
		"bytes=99999999999999999999-",
	}

	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			_, err := ParseRange(h)
			if !errors.Is(err, util.ErrInvalidRange) {
				t.Errorf("ParseRange(%q) error = %v, want ErrInvalidRange", h, err)
			}
		})
	}
}

func TestRangeWindow(t *testing.T) {
	tests := []struct {
		name  string
		rng   Range
		total int64
		want  Window
	}{
		{
			name:  "first hundred bytes",
			rng:   Range{Kind: RangeInclusive, Start: 0, End: 99},
			total: 1000,
			want:  Window{Start: 0, Length: 100, ContentRange: "bytes 0-99/1000"},
		},
		{
			name:  "end clamped to last byte",
			rng:   Range{Kind: RangeInclusive, Start: 900, End: 5000},
			total: 1000,
			want:  Window{Start: 900, Length: 100, ContentRange: "bytes 900-999/1000"},
		},
		{
			name:  "open range",
			rng:   Range{Kind: RangeOpen, Start: 500},
			total: 1000,
			want:  Window{Start: 500, Length: 500, ContentRange: "bytes 500-1000/1000"},
		},
		{
			name:  "open range at last byte",
			rng:   Range{Kind: RangeOpen, Start: 999},
			total: 1000,
			want:  Window{Start: 999, Length: 1, ContentRange: "bytes 999-1000/1000"},
		},
		{
			name:  "inclusive range longer than small blob",
			rng:   Range{Kind: RangeInclusive, Start: 0, End: 99},
			total: 40,
			want:  Window{Start: 0, Length: 40, ContentRange: "bytes 0-39/40"},
		},
		{
			name:  "suffix",
			rng:   Range{Kind: RangeSuffix, Length: 200},
			total: 1000,
			want:  Window{Start: 800, Length: 200, ContentRange: "bytes 800-1000/1000"},
		},
		{
			name:  "suffix longer than blob",
			rng:   Range{Kind: RangeSuffix, Length: 5000},
			total: 1000,
			want:  Window{Start: 0, Length: 1000, ContentRange: "bytes 0-1000/1000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rng.Window(tt.total)
			if err != nil {
				t.Fatalf("Window(%d) error = %v", tt.total, err)
			}
			if got != tt.want {
				t.Errorf("Window(%d) = %+v, want %+v", tt.total, got, tt.want)
			}
		})
	}
}

func TestRangeWindow_Unsatisfiable(t *testing.T) {
	tests := []struct {
		name  string
		rng   Range
		total int64
	}{
		{"start at size", Range{Kind: RangeInclusive, Start: 1000, End: 1001}, 1000},
		{"open past size", Range{Kind: RangeOpen, Start: 1001}, 1000},
		{"open at size", Range{Kind: RangeOpen, Start: 1000}, 1000},
		{"open on empty blob", Range{Kind: RangeOpen, Start: 0}, 0},
		{"suffix on empty blob", Range{Kind: RangeSuffix, Length: 10}, 0},
		{"zero suffix", Range{Kind: RangeSuffix, Length: 0}, 1000},
		{"empty blob", Range{Kind: RangeInclusive, Start: 0, End: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.rng.Window(tt.total); !errors.Is(err, util.ErrUnsatisfiableRange) {
				t.Errorf("Window(%d) error = %v, want ErrUnsatisfiableRange", tt.total, err)
			}
		})
	}
}
