package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Inspect the song catalog",
}

var songsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print every song in the catalog",
	Args:    cobra.NoArgs,
	RunE:    runSongsList,
}

func init() {
	rootCmd.AddCommand(songsCmd)
	songsCmd.AddCommand(songsListCmd)

	songsListCmd.Flags().Bool("json", false, "print the catalog as JSON")
}

func runSongsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	songs, err := st.Songs.ListAll()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(songs)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tARTISTS\tALBUM\tGENRES\tPATH")
	for _, s := range songs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Title, strings.Join(s.Artists, ", "), s.Album, strings.Join(s.Genres, ", "), s.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d songs\n", len(songs))
	return nil
}
