package store

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

const (
	// SongFieldDelimiter separates the five positional fields of a song row
	// (ASCII group separator).
	SongFieldDelimiter = '\x1d'

	// ListDelimiter joins the items of the artist and genre fields (ASCII unit
	// separator). Every read and write path uses this same byte.
	ListDelimiter = "\x1f"

	songFields = 5
)

// Song is one catalog entry
type Song struct {
	Title   string   `json:"title"`
	Album   string   `json:"album"`
	Artists []string `json:"artists"`
	Genres  []string `json:"genres"`
	Path    string   `json:"song_path"` // blob name under the songs directory
}

// HasArtist reports whether artist is one of the song's artists (exact match)
func (s *Song) HasArtist(artist string) bool {
	for _, a := range s.Artists {
		if a == artist {
			return true
		}
	}
	return false
}

func (s *Song) validate() error {
	if s.Title == "" {
		return fmt.Errorf("%w: song title is required", util.ErrInvalidRecord)
	}
	if len(s.Artists) == 0 {
		return fmt.Errorf("%w: song needs at least one artist", util.ErrInvalidRecord)
	}
	if s.Path == "" {
		return fmt.Errorf("%w: song path is required", util.ErrInvalidRecord)
	}

	// Empty list items would vanish on read
	for _, a := range s.Artists {
		if a == "" {
			return fmt.Errorf("%w: empty artist name", util.ErrInvalidRecord)
		}
	}
	for _, g := range s.Genres {
		if g == "" {
			return fmt.Errorf("%w: empty genre name", util.ErrInvalidRecord)
		}
	}

	values := append([]string{s.Title, s.Album, s.Path}, s.Artists...)
	values = append(values, s.Genres...)
	for _, v := range values {
		if strings.ContainsAny(v, string(SongFieldDelimiter)+ListDelimiter+lineBreaks) {
			return fmt.Errorf("%w: %q contains a reserved separator", util.ErrInvalidRecord, v)
		}
	}
	return nil
}

func encodeSong(s *Song) []string {
	return []string{
		s.Title,
		strings.Join(s.Artists, ListDelimiter),
		s.Album,
		strings.Join(s.Genres, ListDelimiter),
		s.Path,
	}
}

func decodeSong(record []string) Song {
	return Song{
		Title:   record[0],
		Artists: splitList(record[1]),
		Album:   record[2],
		Genres:  splitList(record[3]),
		Path:    record[4],
	}
}

func splitList(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, ListDelimiter)
}

// SongStore is the song catalog. Songs are only ever appended.
type SongStore struct {
	mu  sync.RWMutex
	col *Collection
}

// NewSongStore creates a catalog backed by the file at path
func NewSongStore(path string, retry *util.RetryConfig) *SongStore {
	return &SongStore{col: newCollection("songs", path, SongFieldDelimiter, songFields, retry)}
}

// Collection exposes the underlying file for diagnostics
func (s *SongStore) Collection() *Collection {
	return s.col
}

// Append adds one song to the end of the catalog
func (s *SongStore) Append(song *Song) error {
	if err := song.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.col.appendRecord(encodeSong(song))
	metrics.StoreOps.WithLabelValues("songs", "append", metrics.Result(err)).Inc()
	return err
}

// FindByTitleArtist returns the first song, in file order, whose title equals
// title and whose artists include artist. It returns nil when nothing matches.
//
// A row that fails to parse ends the scan and the lookup reports no match,
// even if a matching song follows the bad row. ListAll is lenient instead.
func (s *SongStore) FindByTitleArtist(title, artist string) (*Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Song
	err := s.col.scan(func(record []string, err error) bool {
		if err != nil {
			util.DebugLog("Song lookup aborted: %v", err)
			return false
		}
		if record[0] != title {
			return true
		}
		song := decodeSong(record)
		if song.HasArtist(artist) {
			found = &song
			return false
		}
		return true
	})
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	metrics.StoreOps.WithLabelValues("songs", "find", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListAll returns every parseable song in file order, skipping malformed rows
func (s *SongStore) ListAll() ([]Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.col.readAll()
	metrics.StoreOps.WithLabelValues("songs", "list", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	songs := make([]Song, 0, len(rows))
	for _, record := range rows {
		songs = append(songs, decodeSong(record))
	}
	return songs, nil
}
