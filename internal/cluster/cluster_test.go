package cluster

import (
	"testing"

	"github.com/franz/jukebox/internal/store"
)

func TestNormalizeForClustering(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simon & Garfunkel", "simon and garfunkel"},
		{"  Hello   World  ", "hello world"},
		{"Song (Live)", "song live"},
		{"[Intro]", "intro"},
		{"Salt+Pepa", "saltandpepa"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeForClustering(tt.input); got != tt.expected {
			t.Errorf("NormalizeForClustering(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestKey(t *testing.T) {
	if Key("The Boxer", "Simon & Garfunkel") != Key("the boxer ", "simon and garfunkel") {
		t.Error("Expected equal keys for differently written names")
	}
	if Key("A", "B") == Key("B", "A") {
		t.Error("Expected title and artist to be distinguished")
	}
}

func TestDuplicates(t *testing.T) {
	songs := []store.Song{
		{Title: "The Boxer", Artists: []string{"Simon & Garfunkel"}, Path: "1.mp3"},
		{Title: "Sinnerman", Artists: []string{"Nina Simone"}, Path: "2.mp3"},
		{Title: "the boxer", Artists: []string{"Simon and Garfunkel"}, Path: "3.flac"},
		{Title: "Duet", Artists: []string{"A", "B"}, Path: "4.mp3"},
		{Title: "Duet", Artists: []string{"B"}, Path: "5.mp3"},
		{Title: "Solo", Artists: []string{"C", "c"}, Path: "6.mp3"},
	}

	groups := Duplicates(songs)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d: %+v", len(groups), groups)
	}

	// Sorted by key: "b|duet" < "simon and garfunkel|the boxer"
	if groups[0].Key != "b|duet" {
		t.Errorf("groups[0].Key = %q", groups[0].Key)
	}
	if len(groups[0].Songs) != 2 || groups[0].Songs[0].Path != "4.mp3" || groups[0].Songs[1].Path != "5.mp3" {
		t.Errorf("Unexpected duet group: %+v", groups[0].Songs)
	}
	if len(groups[1].Songs) != 2 || groups[1].Songs[0].Path != "1.mp3" || groups[1].Songs[1].Path != "3.flac" {
		t.Errorf("Unexpected boxer group: %+v", groups[1].Songs)
	}
}

func TestDuplicatesNone(t *testing.T) {
	if groups := Duplicates(nil); len(groups) != 0 {
		t.Errorf("Expected no groups, got %d", len(groups))
	}
}
