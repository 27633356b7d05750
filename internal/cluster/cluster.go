// Package cluster groups catalog entries that describe the same song.
package cluster

import (
	"sort"
	"strings"

	"github.com/franz/jukebox/internal/store"
)

// Group is a set of catalog entries sharing one cluster key
type Group struct {
	Key   string
	Songs []store.Song
}

// Key returns the cluster key for a title and artist: both normalized with
// NormalizeForClustering and joined by "|".
func Key(title, artist string) string {
	return NormalizeForClustering(artist) + "|" + NormalizeForClustering(title)
}

// Duplicates returns the groups of songs that share a key with at least one
// other song, ordered by key. A song with several artists is keyed by each
// of them, but appears at most once per group.
func Duplicates(songs []store.Song) []Group {
	members := make(map[string][]int)
	for i, s := range songs {
		seen := make(map[string]bool, len(s.Artists))
		for _, artist := range s.Artists {
			key := Key(s.Title, artist)
			if seen[key] {
				continue
			}
			seen[key] = true
			members[key] = append(members[key], i)
		}
	}

	var groups []Group
	for key, idx := range members {
		if len(idx) < 2 {
			continue
		}
		g := Group{Key: key, Songs: make([]store.Song, 0, len(idx))}
		for _, i := range idx {
			g.Songs = append(g.Songs, songs[i])
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// NormalizeForClustering lowercases text and removes patterns that should
// not separate two entries of the same song
func NormalizeForClustering(text string) string {
	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	replacer := strings.NewReplacer(
		"(", " ", // Remove parentheses
		")", " ",
		"[", " ", // Remove brackets
		"]", " ",
		"{", " ",
		"}", " ",
		"&", "and", // Normalize ampersand
		"+", "and",
	)
	text = replacer.Replace(text)

	// Collapse whitespace
	return strings.Join(strings.Fields(text), " ")
}
