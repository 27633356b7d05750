package store

import (
	"crypto/subtle"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

const credentialFields = 2

// Credential pairs a username with its password digest
type Credential struct {
	Username string
	Digest   string
}

// CredentialStore maps usernames to password digests
type CredentialStore struct {
	mu  sync.RWMutex
	col *Collection
}

// NewCredentialStore creates a credential store backed by the file at path
func NewCredentialStore(path string, retry *util.RetryConfig) *CredentialStore {
	return &CredentialStore{col: newCollection("users", path, ',', credentialFields, retry)}
}

// Collection exposes the underlying file for diagnostics
func (s *CredentialStore) Collection() *Collection {
	return s.col
}

// Lookup returns the stored username when both username and digest match a
// record. Any unreadable row, or an unreadable file, means no match.
func (s *CredentialStore) Lookup(username, digest string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var canonical string
	var found bool
	err := s.col.scan(func(record []string, err error) bool {
		if err != nil {
			util.WarnLog("Credential lookup aborted: %v", err)
			return false
		}
		// Digest comparison runs for every row, in constant time.
		digestMatch := subtle.ConstantTimeCompare([]byte(record[1]), []byte(digest)) == 1
		if digestMatch && record[0] == username {
			canonical, found = record[0], true
			return false
		}
		return true
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		util.WarnLog("Credential lookup failed: %v", err)
	}
	metrics.StoreOps.WithLabelValues("users", "lookup", metrics.Result(err)).Inc()
	return canonical, found
}

// Add appends a credential without checking for an existing username.
// Adding the same user twice leaves two rows; Update collapses them.
func (s *CredentialStore) Add(username, digest string) error {
	if err := validateCredential(username, digest); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.col.appendRecord([]string{username, digest})
	metrics.StoreOps.WithLabelValues("users", "add", metrics.Result(err)).Inc()
	return err
}

// Update replaces every record for username with a single record holding
// digest. The rewrite is atomic: on failure the previous file stays live.
func (s *CredentialStore) Update(username, digest string) error {
	if err := validateCredential(username, digest); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.update(username, digest)
	metrics.StoreOps.WithLabelValues("users", "update", metrics.Result(err)).Inc()
	return err
}

func (s *CredentialStore) update(username, digest string) error {
	rows, err := s.col.readAll()
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	return s.col.Rewrite(func(w *csv.Writer) error {
		for _, record := range rows {
			if record[0] == username {
				continue
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return w.Write([]string{username, digest})
	})
}

// List returns every parseable credential in file order
func (s *CredentialStore) List() ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.col.readAll()
	if err != nil {
		return nil, err
	}
	creds := make([]Credential, 0, len(rows))
	for _, record := range rows {
		creds = append(creds, Credential{Username: record[0], Digest: record[1]})
	}
	return creds, nil
}

func validateCredential(username, digest string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", util.ErrInvalidRecord)
	}
	if digest == "" {
		return fmt.Errorf("%w: password digest is required", util.ErrInvalidRecord)
	}
	if strings.ContainsAny(username+digest, lineBreaks) {
		return fmt.Errorf("%w: credentials must not contain line breaks", util.ErrInvalidRecord)
	}
	return nil
}
