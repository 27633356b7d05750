package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/franz/jukebox/internal/scan"
	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import audio files from a directory",
	Long: `Walk a directory tree and add every audio file to the catalog.

Titles, artists, album and genres come from the file tags, falling back to
the file name ("Artist - Title.mp3"), and are enriched from MusicBrainz
unless --musicbrainz=false. Each file is copied into the songs directory
under a random name. Songs whose title and artist are already in the
catalog are skipped, so an import can be re-run safely.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Long += "\n\nRecognized extensions: " + strings.Join(scan.GetSupportedExtensions(), " ")

	importCmd.Flags().IntP("concurrency", "c", 4, "number of files processed in parallel")
	importCmd.Flags().Bool("dry-run", false, "report what would be imported without writing")
	importCmd.Flags().StringSlice("ext", nil, "additional audio extensions (e.g. --ext dsf)")
	importCmd.Flags().String("as", "import", "user name recorded in the event log")

	viper.BindPFlag("concurrency", importCmd.Flags().Lookup("concurrency"))
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := args[0]
	concurrency := util.GetConfigInt("concurrency", 4)
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	exts, _ := cmd.Flags().GetStringSlice("ext")
	user, _ := cmd.Flags().GetString("as")

	st, err := openStore()
	if err != nil {
		return err
	}
	blobs, err := openBlobs()
	if err != nil {
		return err
	}

	events := openEvents()
	defer events.Close()

	enricher, closeEnricher := openEnricher()
	defer closeEnricher()

	util.InfoLog("Source: %s", source)
	util.InfoLog("Concurrency: %d", concurrency)
	if enricher != nil {
		util.InfoLog("MusicBrainz lookups are rate limited, large imports take a while")
	}

	scanner := scan.New(&scan.Config{
		Songs:          st.Songs,
		Blobs:          blobs,
		Enricher:       enricher,
		AdditionalExts: exts,
		Concurrency:    concurrency,
		DryRun:         dryRun,
		Logger:         events,
		User:           user,
	})

	startTime := time.Now()
	result, err := scanner.Scan(ctx, source)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	util.InfoLog("  Files found: %d", result.FilesFound)
	util.InfoLog("  Imported: %d", result.FilesImported)
	util.InfoLog("  Already in catalog: %d", result.FilesSkipped)
	util.InfoLog("  Duration: %v", time.Since(startTime).Round(time.Millisecond))
	if len(result.Errors) > 0 {
		util.WarnLog("  Errors: %d", len(result.Errors))
		for _, e := range result.Errors {
			util.DebugLog("    %v", e)
		}
	}
	if ctx.Err() != nil {
		util.WarnLog("Import interrupted")
	}
	return nil
}
