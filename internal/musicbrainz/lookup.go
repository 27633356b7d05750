package musicbrainz

import (
	"context"
	"fmt"

	"github.com/franz/jukebox/internal/util"
)

// Query is what the tags of an uploaded file tell us about it
type Query struct {
	Title  string
	Artist string
	Album  string
}

// Match is the MusicBrainz view of a song
type Match struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Genres  []string `json:"genres"`

	// ReleaseGroup is the album title when the album search matched
	ReleaseGroup string `json:"release_group,omitempty"`
	// FirstRelease is the title of the first release listing the recording
	FirstRelease string `json:"first_release,omitempty"`

	RecordingID    string `json:"recording_id"`
	ReleaseGroupID string `json:"release_group_id,omitempty"`
}

// Lookuper resolves a query to a match. A query that matches nothing
// returns an error wrapping util.ErrNotFound.
type Lookuper interface {
	Lookup(ctx context.Context, q Query) (*Match, error)
}

// Lookup searches for the recording described by q.
//
// With artist and album, the album's release group is searched first and
// the recording is then searched within it. If no release group matches the
// search is repeated without the album. With only an artist, or with
// neither, a single recording search is made.
func (c *Client) Lookup(ctx context.Context, q Query) (*Match, error) {
	if q.Title == "" {
		return nil, fmt.Errorf("recording title cannot be empty")
	}

	if q.Artist != "" && q.Album != "" {
		rg, err := c.SearchReleaseGroup(ctx, q.Album, q.Artist)
		if err != nil {
			return nil, err
		}
		if rg != nil {
			rec, err := c.SearchRecording(ctx, RecordingQuery{Title: q.Title, Artist: q.Artist, ReleaseGroupID: rg.ID})
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, fmt.Errorf("%w: recording %q in release group %s", util.ErrNotFound, q.Title, rg.ID)
			}
			m := newMatch(rec)
			m.ReleaseGroup = rg.Title
			m.ReleaseGroupID = rg.ID
			return m, nil
		}
		util.DebugLog("MusicBrainz: retrying '%s' without album", q.Title)
	}

	rec, err := c.SearchRecording(ctx, RecordingQuery{Title: q.Title, Artist: q.Artist})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: recording %q", util.ErrNotFound, q.Title)
	}
	return newMatch(rec), nil
}

func newMatch(rec *Recording) *Match {
	m := &Match{
		Title:       rec.Title,
		Artists:     rec.ArtistNames(),
		Genres:      rec.GenreNames(),
		RecordingID: rec.ID,
	}
	if len(rec.Releases) > 0 {
		m.FirstRelease = rec.Releases[0].Title
	}
	return m
}
