package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/cluster"
	"github.com/franz/jukebox/internal/musicbrainz"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the stores and configuration",
	Long: `Run diagnostic checks to ensure jukebox can operate correctly.

This command checks:
- Each store file is readable and counts malformed rows
- Leftover files from an interrupted rewrite
- The songs directory exists and is writable
- Catalog entries that point at missing audio files
- Songs listed more than once under differently written names
- The web page file
- SQLite version and MusicBrainz cache integrity

Use this command to troubleshoot issues before serving.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Jukebox Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. Store files
	st, err := store.Open(storePaths())
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	for _, col := range st.Collections() {
		results = append(results, checkCollection(col))
	}

	// 2. Songs directory
	songsDir := util.GetConfigString("songs-dir", defaultSongsDir)
	dirResult := checkSongsDirectory(songsDir)
	results = append(results, dirResult)

	// 3. Catalog references (only meaningful with a usable songs dir)
	if !dirResult.error {
		if blobs, err := blob.NewDir(songsDir, nil); err == nil {
			results = append(results, checkCatalogBlobs(st.Songs, blobs))
		}
	}
	results = append(results, checkDuplicates(st.Songs))

	// 4. Web page
	results = append(results, checkIndexPage(util.GetConfigString("index", defaultIndex)))

	// 5. SQLite and MusicBrainz cache
	results = append(results, checkSQLite())
	results = append(results, checkMBCache(util.GetConfigString("mb-cache", defaultMBCache)))

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors, hasWarnings := printResults(results)

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before serving.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! Jukebox is ready to serve.")
	}

	return nil
}

func printResults(results []checkResult) (hasErrors, hasWarnings bool) {
	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}
	return hasErrors, hasWarnings
}

// checkCollection verifies a store file parses and has no interrupted rewrite
func checkCollection(col *store.Collection) checkResult {
	name := fmt.Sprintf("Store %s", col.Name())

	info, err := os.Stat(col.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    name,
				message: fmt.Sprintf("%s (empty, will be created on first write)", col.Path()),
			}
		}
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", col.Path(), err),
		}
	}

	ok, malformed, err := col.Check()
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", col.Path(), err),
		}
	}

	var problems []string
	if malformed > 0 {
		problems = append(problems, fmt.Sprintf("%d malformed rows", malformed))
	}
	for _, leftover := range col.Leftovers() {
		if strings.HasSuffix(leftover, ".tmp") {
			problems = append(problems, fmt.Sprintf("interrupted rewrite left %s", leftover))
		}
	}

	msg := fmt.Sprintf("%s (%s, %d records)", col.Path(), formatBytes(info.Size()), ok)
	if len(problems) > 0 {
		return checkResult{
			name:    name,
			warning: true,
			message: msg + ": " + strings.Join(problems, "; "),
		}
	}
	return checkResult{name: name, message: msg}
}

// checkSongsDirectory verifies the songs directory is writable
func checkSongsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Songs directory",
				warning: true,
				message: fmt.Sprintf("%s does not exist (created on first upload)", path),
			}
		}
		return checkResult{
			name:    "Songs directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Songs directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	// Check write permission by creating a temp file
	testFile := filepath.Join(path, ".jukebox_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Songs directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Songs directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkCatalogBlobs reports catalog entries whose audio file is missing
func checkCatalogBlobs(songs *store.SongStore, blobs *blob.Dir) checkResult {
	all, err := songs.ListAll()
	if err != nil {
		return checkResult{
			name:    "Catalog files",
			error:   true,
			message: fmt.Sprintf("cannot read catalog: %v", err),
		}
	}

	var missing []string
	for _, s := range all {
		if !blobs.Exists(s.Path) {
			missing = append(missing, s.Path)
		}
	}

	if len(missing) > 0 {
		shown := missing
		if len(shown) > 5 {
			shown = shown[:5]
		}
		return checkResult{
			name:    "Catalog files",
			warning: true,
			message: fmt.Sprintf("%d of %d songs point at missing files (%s)",
				len(missing), len(all), strings.Join(shown, ", ")),
		}
	}
	return checkResult{
		name:    "Catalog files",
		message: fmt.Sprintf("all %d songs present", len(all)),
	}
}

// checkDuplicates reports songs present more than once in the catalog
func checkDuplicates(songs *store.SongStore) checkResult {
	all, err := songs.ListAll()
	if err != nil {
		return checkResult{
			name:    "Duplicates",
			error:   true,
			message: fmt.Sprintf("cannot read catalog: %v", err),
		}
	}

	groups := cluster.Duplicates(all)
	if len(groups) == 0 {
		return checkResult{name: "Duplicates", message: "none"}
	}

	for _, g := range groups {
		paths := make([]string, len(g.Songs))
		for i, s := range g.Songs {
			paths[i] = s.Path
		}
		util.DebugLog("Duplicate '%s': %s", g.Songs[0].Title, strings.Join(paths, ", "))
	}
	return checkResult{
		name:    "Duplicates",
		warning: true,
		message: fmt.Sprintf("%d songs are listed more than once (use -v for details)", len(groups)),
	}
}

// checkIndexPage verifies the web page served at / exists
func checkIndexPage(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return checkResult{
			name:    "Web page",
			warning: true,
			message: fmt.Sprintf("%s not found (/ will answer 404)", path),
		}
	}
	return checkResult{
		name:    "Web page",
		message: fmt.Sprintf("%s (%s)", path, formatBytes(info.Size())),
	}
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is pure Go, just verify we can get the version
	version := musicbrainz.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkMBCache verifies the MusicBrainz cache database
func checkMBCache(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "MusicBrainz cache",
				message: fmt.Sprintf("%s (will be created on first lookup)", path),
			}
		}
		return checkResult{
			name:    "MusicBrainz cache",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	cache, err := musicbrainz.OpenCache(path, nil)
	if err != nil {
		return checkResult{
			name:    "MusicBrainz cache",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", path, err),
		}
	}
	defer cache.Close()

	if err := cache.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "MusicBrainz cache",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	entries, hits, _ := cache.GetStats()
	return checkResult{
		name:    "MusicBrainz cache",
		message: fmt.Sprintf("%s (%s, %d entries, %d hits)", path, formatBytes(info.Size()), entries, hits),
	}
}
