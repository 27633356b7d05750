package meta

import (
	"context"
	"errors"

	"github.com/franz/jukebox/internal/musicbrainz"
	"github.com/franz/jukebox/internal/util"
)

// Metadata is what jukebox proposes for a song before it is stored
type Metadata struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
	Genres  []string `json:"genres"`
}

// Enricher fills in song metadata from MusicBrainz. With a nil Lookuper it
// returns the tag values unchanged.
type Enricher struct {
	MB musicbrainz.Lookuper
}

// FromTags builds metadata from tag values alone
func FromTags(p *Probed) *Metadata {
	return &Metadata{
		Title:   p.Title,
		Album:   p.Album,
		Artists: CleanList([]string{p.Artist}),
		Genres:  SplitGenres(p.Genre),
	}
}

// Enrich looks the probed song up on MusicBrainz. Credited artists and
// genres from the matched recording replace the tag values; the album comes
// from the matched release group, else the tag, else the first release of
// the recording. Any lookup failure falls back to the tag values.
func (e *Enricher) Enrich(ctx context.Context, p *Probed) *Metadata {
	fallback := FromTags(p)
	if e == nil || e.MB == nil {
		return fallback
	}

	m, err := e.MB.Lookup(ctx, musicbrainz.Query{Title: p.Title, Artist: p.Artist, Album: p.Album})
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			util.DebugLog("No MusicBrainz match for '%s'", p.Title)
		} else {
			util.WarnLog("MusicBrainz lookup for '%s' failed: %v", p.Title, err)
		}
		return fallback
	}

	md := &Metadata{
		Title:   CleanString(m.Title),
		Artists: CleanList(m.Artists),
		Genres:  CleanList(m.Genres),
	}
	if md.Title == "" {
		md.Title = fallback.Title
	}
	if len(md.Artists) == 0 {
		md.Artists = fallback.Artists
	}

	switch {
	case m.ReleaseGroup != "":
		md.Album = CleanString(m.ReleaseGroup)
	case p.Album != "":
		md.Album = p.Album
	default:
		md.Album = CleanString(m.FirstRelease)
	}
	return md
}
