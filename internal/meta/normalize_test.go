package meta

import (
	"reflect"
	"testing"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Song  Title  ", "Song Title"},
		{"Song\tTitle", "Song Title"},
		{"Cafe\u0301", "Caf\u00e9"}, // decomposed to composed
		{"Group\x1dSeparated\x1fUnit", "GroupSeparatedUnit"},
		{"Bell\x07", "Bell"},
		{"", ""},
	}

	for _, tt := range tests {
		result := CleanString(tt.input)
		if result != tt.expected {
			t.Errorf("CleanString(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestCleanList(t *testing.T) {
	got := CleanList([]string{" Rock ", "", "Pop", "Rock", "  "})
	want := []string{"Rock", "Pop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanList() = %v, expected %v", got, want)
	}

	if got := CleanList(nil); got == nil || len(got) != 0 {
		t.Errorf("CleanList(nil) = %#v, expected empty non-nil slice", got)
	}
}

func TestSplitGenres(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Rock", []string{"Rock"}},
		{"Rock; Pop", []string{"Rock", "Pop"}},
		{"Rock/Pop,Jazz", []string{"Rock", "Pop", "Jazz"}},
		{"Rock\x00Pop", []string{"Rock", "Pop"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		result := SplitGenres(tt.input)
		if !reflect.DeepEqual(result, tt.expected) {
			t.Errorf("SplitGenres(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}
