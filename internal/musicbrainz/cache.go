package musicbrainz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

const currentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per distinct (title, artist, album) query.
-- found = 0 records a query MusicBrainz had no recording for.
CREATE TABLE IF NOT EXISTS mb_recording_cache (
  query_key TEXT PRIMARY KEY,
  found INTEGER NOT NULL,
  match_json TEXT,
  cached_at DATETIME NOT NULL,
  hit_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_mb_cached_at ON mb_recording_cache(cached_at);
`

// Cache provides database-backed caching for MusicBrainz lookups
type Cache struct {
	db     *sql.DB
	client Lookuper
}

// OpenCache opens or creates the cache database at path. Lookups that miss
// the cache are forwarded to client.
func OpenCache(path string, client Lookuper) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Cache{db: db, client: client}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return c, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

// migrate applies database migrations
func (c *Cache) migrate() error {
	version, err := c.schemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (c *Cache) schemaVersion() (int, error) {
	var exists int
	err := c.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

// Key normalizes a query into its cache key
func Key(q Query) string {
	parts := []string{q.Title, q.Artist, q.Album}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(norm.NFC.String(p)))
	}
	return strings.Join(parts, "\x1f")
}

// Lookup answers from the cache, or asks the client and remembers the
// answer. Queries with no match are cached too; transport errors are not.
func (c *Cache) Lookup(ctx context.Context, q Query) (*Match, error) {
	key := Key(q)

	m, found, hit, err := c.get(key)
	if err != nil {
		util.WarnLog("MusicBrainz cache read failed: %v", err)
	} else if hit {
		metrics.MusicBrainzRequests.WithLabelValues("cache_hit").Inc()
		c.incrementHitCount(key)
		if !found {
			util.DebugLog("MusicBrainz cache hit (no match): '%s'", q.Title)
			return nil, fmt.Errorf("%w: recording %q (cached)", util.ErrNotFound, q.Title)
		}
		util.DebugLog("MusicBrainz cache hit: '%s' -> '%s'", q.Title, m.Title)
		return m, nil
	}

	if c.client == nil {
		return nil, fmt.Errorf("%w: no MusicBrainz client", util.ErrUnsupported)
	}

	util.DebugLog("MusicBrainz cache miss: '%s', querying API", q.Title)
	m, err = c.client.Lookup(ctx, q)
	switch {
	case err == nil:
		if perr := c.put(key, m); perr != nil {
			util.WarnLog("Failed to cache MusicBrainz result: %v", perr)
		}
	case errors.Is(err, util.ErrNotFound):
		if perr := c.put(key, nil); perr != nil {
			util.WarnLog("Failed to cache MusicBrainz miss: %v", perr)
		}
	}
	return m, err
}

// get returns the cached match for key. hit reports whether the key is
// cached at all; found is false for a cached miss.
func (c *Cache) get(key string) (m *Match, found, hit bool, err error) {
	var foundInt int
	var matchJSON sql.NullString
	err = c.db.QueryRow(
		"SELECT found, match_json FROM mb_recording_cache WHERE query_key = ?", key,
	).Scan(&foundInt, &matchJSON)
	if err == sql.ErrNoRows {
		return nil, false, false, nil
	}
	if err != nil {
		return nil, false, false, fmt.Errorf("failed to query cache: %w", err)
	}
	if foundInt == 0 || !matchJSON.Valid {
		return nil, false, true, nil
	}

	m = &Match{}
	if err := json.Unmarshal([]byte(matchJSON.String), m); err != nil {
		return nil, false, false, fmt.Errorf("failed to decode cached match: %w", err)
	}
	return m, true, true, nil
}

// put stores a lookup result; a nil match records a miss
func (c *Cache) put(key string, m *Match) error {
	var found int
	var matchJSON sql.NullString
	if m != nil {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode match: %w", err)
		}
		found = 1
		matchJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO mb_recording_cache (query_key, found, match_json, cached_at, hit_count)
		VALUES (?, ?, ?, ?, COALESCE((SELECT hit_count FROM mb_recording_cache WHERE query_key = ?), 0))
	`, key, found, matchJSON, time.Now(), key)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// incrementHitCount increments the cache hit counter
func (c *Cache) incrementHitCount(key string) {
	_, err := c.db.Exec("UPDATE mb_recording_cache SET hit_count = hit_count + 1 WHERE query_key = ?", key)
	if err != nil {
		util.DebugLog("Failed to increment hit count: %v", err)
	}
}

// GetStats returns cache statistics
func (c *Cache) GetStats() (entries int, totalHits int64, err error) {
	err = c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM mb_recording_cache",
	).Scan(&entries, &totalHits)
	return
}

// ClearOldEntries removes cache entries older than the specified duration
func (c *Cache) ClearOldEntries(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := c.db.Exec("DELETE FROM mb_recording_cache WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// CheckIntegrity runs PRAGMA integrity_check on the cache database
func (c *Cache) CheckIntegrity() error {
	var result string
	if err := c.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}
