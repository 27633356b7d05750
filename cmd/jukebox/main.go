package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "jukebox",
		Short: "Jukebox - a small self-hosted music server",
		Long: `jukebox serves a personal music catalog over HTTP.

Songs, users and the streaming whitelist live in plain delimited files.
Audio is streamed with byte-range support to whitelisted clients, and new
songs can be uploaded through the web API or imported from a directory.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyLogSettings()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./configs/jukebox.yaml)")
	flags.String("songs-db", defaultSongsDB, "song catalog file")
	flags.String("users-db", defaultUsersDB, "credential file")
	flags.String("whitelist-db", defaultWhitelistDB, "streaming whitelist file")
	flags.String("songs-dir", defaultSongsDir, "directory holding the audio files")
	flags.String("mb-cache", defaultMBCache, "MusicBrainz lookup cache database")
	flags.Duration("mb-cache-ttl", defaultMBCacheTTL, "drop cached MusicBrainz lookups older than this (0 keeps all)")
	flags.Bool("musicbrainz", true, "enrich probed metadata from MusicBrainz")
	flags.String("events-dir", "", "directory for JSONL audit events (empty disables)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("quiet", "q", false, "quiet output (errors only)")
	flags.Bool("no-color", false, "disable colored output")

	// Bind flags to viper
	for _, name := range []string{
		"songs-db", "users-db", "whitelist-db", "songs-dir", "mb-cache",
		"mb-cache-ttl", "musicbrainz", "events-dir", "verbose", "quiet", "no-color",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("jukebox")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match (JUKEBOX_SONGS_DB, ...)
	viper.SetEnvPrefix("JUKEBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

// applyLogSettings configures the logger from the verbose, quiet and
// no-color settings
func applyLogSettings() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	if viper.GetBool("no-color") {
		util.SetColors(false)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
