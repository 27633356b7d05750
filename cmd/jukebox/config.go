package main

import (
	"fmt"
	"time"

	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/meta"
	"github.com/franz/jukebox/internal/musicbrainz"
	"github.com/franz/jukebox/internal/report"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/viper"
)

const (
	defaultSongsDB     = "./songs.csv"
	defaultUsersDB     = "./users.csv"
	defaultWhitelistDB = "./whitelist.csv"
	defaultSongsDir    = "./songs"
	defaultMBCache     = "jukebox-mb.db"
	defaultMBCacheTTL  = 90 * 24 * time.Hour
	defaultAddr        = "127.0.0.1:8089"
	defaultIndex       = "index.html"
	defaultMaxUploadMB = 130
)

// storePaths resolves the three collection files from the config
func storePaths() store.Paths {
	return store.Paths{
		Songs:     util.GetConfigString("songs-db", defaultSongsDB),
		Users:     util.GetConfigString("users-db", defaultUsersDB),
		Whitelist: util.GetConfigString("whitelist-db", defaultWhitelistDB),
	}
}

// openStore opens the collections with retrying renames
func openStore() (*store.Store, error) {
	paths := storePaths()
	util.DebugLog("Stores: songs=%s users=%s whitelist=%s", paths.Songs, paths.Users, paths.Whitelist)

	st, err := store.OpenWithOptions(paths, &store.OpenOptions{RetryConfig: util.DefaultRetryConfig()})
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return st, nil
}

// openBlobs opens (creating if needed) the songs directory
func openBlobs() (*blob.Dir, error) {
	return blob.NewDir(util.GetConfigString("songs-dir", defaultSongsDir), util.DefaultRetryConfig())
}

// openEvents creates the audit event logger, or a null logger when
// events-dir is unset or unusable
func openEvents() *report.EventLogger {
	dir := viper.GetString("events-dir")
	if dir == "" {
		return report.NullLogger()
	}

	// Create event logger with appropriate log level
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(dir, logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.InfoLog("Event log: %s", logger.Path())
	return logger
}

// openEnricher builds the metadata enricher. With MusicBrainz disabled the
// enricher is nil and only tag values are used. The returned close func is
// always safe to call.
func openEnricher() (*meta.Enricher, func()) {
	if !viper.GetBool("musicbrainz") {
		util.DebugLog("MusicBrainz enrichment disabled")
		return nil, func() {}
	}

	client := musicbrainz.NewClient(nil)
	cachePath := util.GetConfigString("mb-cache", defaultMBCache)
	cache, err := musicbrainz.OpenCache(cachePath, client)
	if err != nil {
		util.WarnLog("MusicBrainz cache unavailable (%v), lookups will not be cached", err)
		return &meta.Enricher{MB: client}, func() {}
	}

	pruneMBCache(cache, viper.GetDuration("mb-cache-ttl"))
	if entries, hits, err := cache.GetStats(); err == nil {
		util.DebugLog("MusicBrainz cache: %s (%d entries, %d hits)", cachePath, entries, hits)
	}
	return &meta.Enricher{MB: cache}, func() {
		if err := cache.Close(); err != nil {
			util.WarnLog("Failed to close MusicBrainz cache: %v", err)
		}
	}
}

// pruneMBCache drops lookups older than ttl; ttl <= 0 keeps everything
func pruneMBCache(cache *musicbrainz.Cache, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	n, err := cache.ClearOldEntries(ttl)
	if err != nil {
		util.WarnLog("Failed to prune MusicBrainz cache: %v", err)
		return 0
	}
	if n > 0 {
		util.DebugLog("Pruned %d MusicBrainz cache entries older than %s", n, ttl)
	}
	return n
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
