// Package scan imports audio files from a directory tree into the catalog.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/meta"
	"github.com/franz/jukebox/internal/report"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
)

// AudioExtensions are the default supported audio file extensions
var AudioExtensions = []string{
	".mp3",
	".flac",
	".m4a",
	".aac",
	".ogg",
	".opus",
	".wav",
	".aiff",
	".aif",
	".wma",
	".ape",
	".wv",  // WavPack
	".mpc", // Musepack
}

// Scanner discovers audio files and adds them to the catalog
type Scanner struct {
	songs       *store.SongStore
	blobs       *blob.Dir
	enricher    *meta.Enricher
	extensions  map[string]bool
	concurrency int
	dryRun      bool
	logger      *report.EventLogger
	user        string
}

// Config holds scanner configuration
type Config struct {
	Songs          *store.SongStore
	Blobs          *blob.Dir
	Enricher       *meta.Enricher // nil = tags only
	AdditionalExts []string
	Concurrency    int
	DryRun         bool
	Logger         *report.EventLogger
	// User is recorded as the author of imported songs in the event log
	User string
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	return &Scanner{
		songs:       cfg.Songs,
		blobs:       cfg.Blobs,
		enricher:    cfg.Enricher,
		extensions:  extMap,
		concurrency: cfg.Concurrency,
		dryRun:      cfg.DryRun,
		logger:      cfg.Logger,
		user:        cfg.User,
	}
}

// Result represents a scan result
type Result struct {
	FilesFound    int
	FilesImported int
	FilesSkipped  int
	Errors        []error
}

// songKey identifies a title and artist pair for duplicate detection
func songKey(title, artist string) string {
	return title + store.ListDelimiter + artist
}

// Scan walks the source directory and imports every audio file whose title
// and artist are not already in the catalog.
func (s *Scanner) Scan(ctx context.Context, sourcePath string) (*Result, error) {
	util.InfoLog("Starting import from: %s", sourcePath)

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("cannot access source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", sourcePath)
	}

	// Pre-load existing songs for quick duplicate detection
	existing, err := s.songs.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, song := range existing {
		for _, artist := range song.Artists {
			known[songKey(song.Title, artist)] = true
		}
	}
	util.DebugLog("Loaded %d existing songs", len(existing))
	var knownMutex sync.Mutex

	result := &Result{}
	var errMutex sync.Mutex
	addError := func(err error) {
		errMutex.Lock()
		result.Errors = append(result.Errors, err)
		errMutex.Unlock()
	}

	var filesFound, filesImported, filesSkipped atomic.Int64

	// Check if stdout is a terminal (disable progress bar if piped/redirected)
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		// Indeterminate progress bar (we don't know the total yet)
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	filePaths := make(chan string, 100)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range filePaths {
				// Check for cancellation
				if ctx.Err() != nil {
					return
				}

				imported, err := s.importFile(ctx, path, known, &knownMutex)
				switch {
				case err != nil:
					util.ErrorLog("Failed to import %s: %v", path, err)
					addError(fmt.Errorf("%s: %w", path, err))
				case imported:
					filesImported.Add(1)
				default:
					filesSkipped.Add(1)
				}
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	// Walk directory tree
	walkErr := filepath.WalkDir(sourcePath, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			addError(fmt.Errorf("access error: %s: %w", path, err))
			return nil // Continue walking
		}

		if d.IsDir() || !s.isAudioFile(path) {
			return nil
		}

		filesFound.Add(1)
		select {
		case filePaths <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	close(filePaths)
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}

	result.FilesFound = int(filesFound.Load())
	result.FilesImported = int(filesImported.Load())
	result.FilesSkipped = int(filesSkipped.Load())

	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return result, fmt.Errorf("walk error: %w", walkErr)
	}

	util.SuccessLog("Import complete: %d files found, %d imported, %d already present, %d errors",
		result.FilesFound, result.FilesImported, result.FilesSkipped, len(result.Errors))

	return result, nil
}

// importFile probes one file and adds it to the catalog.
// Returns (imported, error); a song already in the catalog is not imported.
func (s *Scanner) importFile(ctx context.Context, path string, known map[string]bool, knownMutex *sync.Mutex) (bool, error) {
	md, err := s.describe(ctx, path)
	if err != nil {
		return false, err
	}

	knownMutex.Lock()
	for _, artist := range md.Artists {
		if known[songKey(md.Title, artist)] {
			knownMutex.Unlock()
			util.DebugLog("Already in catalog: %s", path)
			return false, nil
		}
	}
	// Claim the keys so a second copy in this run is skipped
	for _, artist := range md.Artists {
		known[songKey(md.Title, artist)] = true
	}
	knownMutex.Unlock()

	if s.dryRun {
		util.InfoLog("[dry-run] would import '%s' by %s", md.Title, strings.Join(md.Artists, ", "))
		return true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	id, err := s.blobs.Save(f, path)
	if err != nil {
		return false, err
	}

	song := &store.Song{
		Title:   md.Title,
		Album:   md.Album,
		Artists: md.Artists,
		Genres:  md.Genres,
		Path:    id,
	}
	if err := s.songs.Append(song); err != nil {
		if rmErr := s.blobs.Remove(id); rmErr != nil {
			util.WarnLog("Could not remove orphaned blob %s: %v", id, rmErr)
		}
		return false, err
	}

	s.logger.LogSongAdded(s.user, song.Title, id)
	util.DebugLog("Imported: %s -> %s", path, id)
	return true, nil
}

// describe reads tags, falling back to the file name for a missing title
// or artist, and enriches the result.
func (s *Scanner) describe(ctx context.Context, path string) (*meta.Metadata, error) {
	probed, err := meta.ProbeFile(path)
	if err != nil && !errors.Is(err, meta.ErrNoTitle) {
		util.DebugLog("No tags in %s: %v", path, err)
		probed = &meta.Probed{}
	}

	if probed.Title == "" || probed.Artist == "" {
		artist, title := meta.FromFilename(path)
		if probed.Title == "" {
			probed.Title = title
		}
		if probed.Artist == "" {
			probed.Artist = artist
		}
	}
	if probed.Title == "" {
		return nil, meta.ErrNoTitle
	}

	md := s.enricher.Enrich(ctx, probed)
	if len(md.Artists) == 0 {
		return nil, fmt.Errorf("%w: no artist for %q", util.ErrInvalidRecord, md.Title)
	}
	return md, nil
}

// isAudioFile checks if a file has a supported audio extension
func (s *Scanner) isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

// GetSupportedExtensions returns the list of supported audio extensions
func GetSupportedExtensions() []string {
	exts := make([]string, len(AudioExtensions))
	copy(exts, AudioExtensions)
	return exts
}
