package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"sync"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

const whitelistFields = 1

// WhitelistStore is the set of client IPs allowed to fetch audio data
type WhitelistStore struct {
	mu  sync.RWMutex
	col *Collection
}

// NewWhitelistStore creates a whitelist backed by the file at path
func NewWhitelistStore(path string, retry *util.RetryConfig) *WhitelistStore {
	return &WhitelistStore{col: newCollection("whitelist", path, ',', whitelistFields, retry)}
}

// Collection exposes the underlying file for diagnostics
func (s *WhitelistStore) Collection() *Collection {
	return s.col
}

// IsMember reports whether ip is listed. It fails closed: a malformed row
// ends the scan with false, and so does a missing or unreadable file.
func (s *WhitelistStore) IsMember(ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member := false
	err := s.col.scan(func(record []string, err error) bool {
		if err != nil {
			util.WarnLog("Whitelist check denied %s: %v", ip, err)
			return false
		}
		if record[0] == ip {
			member = true
			return false
		}
		return true
	})
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			util.WarnLog("Whitelist unreadable, denying %s: %v", ip, err)
		}
		member = false
	}
	metrics.StoreOps.WithLabelValues("whitelist", "is_member", metrics.Result(err)).Inc()
	return member
}

// List returns every parseable entry in file order
func (s *WhitelistStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.col.readAll()
	if err != nil {
		return nil, err
	}
	ips := make([]string, 0, len(rows))
	for _, record := range rows {
		ips = append(ips, record[0])
	}
	return ips, nil
}

// Add lists ip. Adding an address that is already present changes nothing.
func (s *WhitelistStore) Add(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: %q is not an IP address", util.ErrInvalidRecord, ip)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.col.readAll()
	if err != nil {
		return fmt.Errorf("failed to read whitelist: %w", err)
	}
	for _, record := range rows {
		if record[0] == ip {
			return nil
		}
	}

	err = s.col.Rewrite(func(w *csv.Writer) error {
		for _, record := range rows {
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return w.Write([]string{ip})
	})
	metrics.StoreOps.WithLabelValues("whitelist", "add", metrics.Result(err)).Inc()
	return err
}

// Remove drops every entry for ip. It reports whether anything was removed.
func (s *WhitelistStore) Remove(ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.col.readAll()
	if err != nil {
		return false, fmt.Errorf("failed to read whitelist: %w", err)
	}

	kept := rows[:0:0]
	for _, record := range rows {
		if record[0] != ip {
			kept = append(kept, record)
		}
	}
	if len(kept) == len(rows) {
		return false, nil
	}

	err = s.col.Rewrite(func(w *csv.Writer) error {
		return w.WriteAll(kept)
	})
	metrics.StoreOps.WithLabelValues("whitelist", "remove", metrics.Result(err)).Inc()
	return err == nil, err
}
