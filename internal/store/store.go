// Package store keeps jukebox state in three flat files: the song catalog,
// the user credentials and the IP whitelist.
//
// Each collection is guarded by its own reader/writer lock, so operations on
// different collections never wait on each other. The locks only serialize
// callers inside this process; running two jukebox processes against the
// same files is not supported. Whole-file replacement goes through
// Collection.Rewrite, which relies on rename(2) for atomicity.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/jukebox/internal/util"
)

// Paths locates the three collection files
type Paths struct {
	Songs     string
	Users     string
	Whitelist string
}

// OpenOptions holds options for opening the stores
type OpenOptions struct {
	// RetryConfig applies to file opens and renames (nil = no retries)
	RetryConfig *util.RetryConfig
}

// Store bundles the three collections
type Store struct {
	Songs     *SongStore
	Users     *CredentialStore
	Whitelist *WhitelistStore
}

// Open prepares the stores with default options
func Open(paths Paths) (*Store, error) {
	return OpenWithOptions(paths, nil)
}

// OpenWithOptions prepares the stores. Files are not created until the
// first write; their parent directories are created here.
func OpenWithOptions(paths Paths, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	retry := opts.RetryConfig
	if retry == nil {
		retry = util.NoRetryConfig()
	}

	for name, p := range map[string]string{"songs": paths.Songs, "users": paths.Users, "whitelist": paths.Whitelist} {
		if p == "" {
			return nil, fmt.Errorf("%w: %s path is empty", util.ErrInvalidConfig, name)
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
	}

	return &Store{
		Songs:     NewSongStore(paths.Songs, retry),
		Users:     NewCredentialStore(paths.Users, retry),
		Whitelist: NewWhitelistStore(paths.Whitelist, retry),
	}, nil
}

// Collections returns the three collections in a stable order
func (s *Store) Collections() []*Collection {
	return []*Collection{s.Songs.Collection(), s.Users.Collection(), s.Whitelist.Collection()}
}
