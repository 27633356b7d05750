package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/store"
)

func TestIsAudioFile(t *testing.T) {
	scanner := &Scanner{
		extensions: map[string]bool{
			".mp3":  true,
			".flac": true,
			".m4a":  true,
		},
	}

	tests := []struct {
		path     string
		expected bool
	}{
		{"test.mp3", true},
		{"test.MP3", true}, // Case insensitive
		{"test.flac", true},
		{"test.m4a", true},
		{"test.txt", false},
		{"test.jpg", false},
		{"test", false},
		{".mp3", true},
	}

	for _, tt := range tests {
		result := scanner.isAudioFile(tt.path)
		if result != tt.expected {
			t.Errorf("isAudioFile(%s) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestNewAdditionalExtensions(t *testing.T) {
	scanner := New(&Config{AdditionalExts: []string{"dsf", ".MKA"}})

	for _, path := range []string{"a.dsf", "a.mka", "a.mp3"} {
		if !scanner.isAudioFile(path) {
			t.Errorf("isAudioFile(%s) = false, expected true", path)
		}
	}
	if scanner.concurrency != 4 {
		t.Errorf("default concurrency = %d, expected 4", scanner.concurrency)
	}
}

type importEnv struct {
	source string
	store  *store.Store
	blobs  *blob.Dir
}

func newImportEnv(t *testing.T) *importEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(store.Paths{
		Songs:     filepath.Join(dir, "songs.csv"),
		Users:     filepath.Join(dir, "users.csv"),
		Whitelist: filepath.Join(dir, "whitelist.csv"),
	})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	blobs, err := blob.NewDir(filepath.Join(dir, "songs"), nil)
	if err != nil {
		t.Fatalf("blob.NewDir failed: %v", err)
	}

	source := filepath.Join(dir, "music")
	if err := os.MkdirAll(filepath.Join(source, "Artist", "Album"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	return &importEnv{source: source, store: st, blobs: blobs}
}

func (e *importEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.source, rel), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func (e *importEnv) scanner() *Scanner {
	return New(&Config{
		Songs:       e.store.Songs,
		Blobs:       e.blobs,
		Concurrency: 2,
	})
}

func TestScannerImportsFiles(t *testing.T) {
	env := newImportEnv(t)
	// Untagged files fall back to the file name
	env.write(t, "Artist/Album/01 - Nina Simone - Sinnerman.mp3", "audio one")
	env.write(t, "Artist/Miles Davis - So What.flac", "audio two")
	env.write(t, "README.txt", "not audio")

	result, err := env.scanner().Scan(context.Background(), env.source)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.FilesFound != 2 {
		t.Errorf("Expected 2 files found, got %d", result.FilesFound)
	}
	if result.FilesImported != 2 {
		t.Errorf("Expected 2 files imported, got %d (errors: %v)", result.FilesImported, result.Errors)
	}

	song, err := env.store.Songs.FindByTitleArtist("Sinnerman", "Nina Simone")
	if err != nil {
		t.Fatalf("FindByTitleArtist failed: %v", err)
	}
	if filepath.Ext(song.Path) != ".mp3" {
		t.Errorf("Expected blob with .mp3 extension, got %q", song.Path)
	}

	f, err := env.blobs.Open(song.Path)
	if err != nil {
		t.Fatalf("Open blob failed: %v", err)
	}
	defer f.Close()
	data := make([]byte, 32)
	n, _ := f.Read(data)
	if string(data[:n]) != "audio one" {
		t.Errorf("Blob content = %q, expected %q", data[:n], "audio one")
	}
}

func TestScannerIdempotency(t *testing.T) {
	env := newImportEnv(t)
	env.write(t, "Artist/Album/Nina Simone - Sinnerman.mp3", "audio")
	// Same song under another name within one run
	env.write(t, "Artist/Nina Simone - Sinnerman.ogg", "audio copy")

	first, err := env.scanner().Scan(context.Background(), env.source)
	if err != nil {
		t.Fatalf("First scan failed: %v", err)
	}
	if first.FilesImported != 1 || first.FilesSkipped != 1 {
		t.Errorf("First scan: imported %d, skipped %d; expected 1 and 1",
			first.FilesImported, first.FilesSkipped)
	}

	second, err := env.scanner().Scan(context.Background(), env.source)
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}
	if second.FilesImported != 0 || second.FilesSkipped != 2 {
		t.Errorf("Second scan: imported %d, skipped %d; expected 0 and 2",
			second.FilesImported, second.FilesSkipped)
	}

	songs, err := env.store.Songs.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(songs) != 1 {
		t.Errorf("Expected 1 song in catalog, got %d", len(songs))
	}

	entries, err := os.ReadDir(env.blobs.Root())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 blob, got %d", len(entries))
	}
}

func TestScannerMissingArtist(t *testing.T) {
	env := newImportEnv(t)
	env.write(t, "Artist/Album/01 - Untitled.mp3", "audio")

	result, err := env.scanner().Scan(context.Background(), env.source)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %v", result.Errors)
	}
	if result.FilesImported != 0 {
		t.Errorf("Expected nothing imported, got %d", result.FilesImported)
	}
}

func TestScannerDryRun(t *testing.T) {
	env := newImportEnv(t)
	env.write(t, "Artist/Nina Simone - Sinnerman.mp3", "audio")

	s := New(&Config{Songs: env.store.Songs, Blobs: env.blobs, DryRun: true})
	result, err := s.Scan(context.Background(), env.source)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.FilesImported != 1 {
		t.Errorf("Expected 1 file reported, got %d", result.FilesImported)
	}

	songs, _ := env.store.Songs.ListAll()
	if len(songs) != 0 {
		t.Errorf("Dry run wrote %d songs", len(songs))
	}
}

func TestScannerNotADirectory(t *testing.T) {
	env := newImportEnv(t)
	env.write(t, "Artist/file.mp3", "audio")

	if _, err := env.scanner().Scan(context.Background(), filepath.Join(env.source, "Artist", "file.mp3")); err == nil {
		t.Error("Expected error for file source")
	}
	if _, err := env.scanner().Scan(context.Background(), filepath.Join(env.source, "missing")); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestGetSupportedExtensions(t *testing.T) {
	exts := GetSupportedExtensions()
	if len(exts) != len(AudioExtensions) {
		t.Errorf("Expected %d extensions, got %d", len(AudioExtensions), len(exts))
	}
}
