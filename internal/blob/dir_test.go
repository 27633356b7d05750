package blob

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/jukebox/internal/util"
)

func TestSanitizeID(t *testing.T) {
	valid := []string{"song.mp3", "3f2c-1a.flac", "no_extension"}
	for _, id := range valid {
		if _, err := SanitizeID(id); err != nil {
			t.Errorf("SanitizeID(%q) error = %v", id, err)
		}
	}

	invalid := []string{"", "  ", "../etc/passwd", "a/b.mp3", `a\b.mp3`, ".hidden", "..", "a\x00b"}
	for _, id := range invalid {
		if _, err := SanitizeID(id); !errors.Is(err, util.ErrInvalidBlobID) {
			t.Errorf("SanitizeID(%q) error = %v, want ErrInvalidBlobID", id, err)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"track.mp3", ".mp3"},
		{"Track.FLAC", ".flac"},
		{"dir/nested/file.ogg", ".ogg"},
		{"noext", ""},
		{"trailing.", ""},
		{"weird.m p3", ""},
		{"long.extension12", ""},
		{"archive.tar.gz", ".gz"},
	}

	for _, tt := range tests {
		if got := Extension(tt.filename); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestDirSaveAndOpen(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "songs"), nil)
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	id, err := d.Save(strings.NewReader("audio bytes"), "My Song.MP3")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(id, ".mp3") {
		t.Errorf("Expected .mp3 id, got %q", id)
	}
	if !d.Exists(id) {
		t.Fatalf("Saved blob %q does not exist", id)
	}

	data, err := os.ReadFile(filepath.Join(d.Root(), id))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "audio bytes" {
		t.Errorf("Blob content = %q", data)
	}

	// No temporary files left behind
	entries, _ := os.ReadDir(d.Root())
	if len(entries) != 1 {
		t.Errorf("Expected 1 file in blob dir, got %d", len(entries))
	}

	other, err := d.Save(strings.NewReader("x"), "My Song.MP3")
	if err != nil {
		t.Fatalf("Second Save failed: %v", err)
	}
	if other == id {
		t.Error("Expected distinct ids for two uploads")
	}
}

func TestDirOpen_Missing(t *testing.T) {
	d, err := NewDir(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(d.Root(), "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"missing.mp3", "subdir", "../outside"} {
		if f, err := d.Open(id); err == nil {
			f.Close()
			t.Errorf("Open(%q) should fail", id)
		}
		if d.Exists(id) {
			t.Errorf("Exists(%q) = true", id)
		}
	}
}
