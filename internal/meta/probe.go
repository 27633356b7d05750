// Package meta reads song metadata from audio tags and fills it in from
// MusicBrainz.
package meta

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhowden/tag"
)

// ErrNoTitle is returned when the tags carry no title
var ErrNoTitle = errors.New("no title found")

// Probed holds the tag values of one audio file
type Probed struct {
	Format string
	Title  string
	Artist string
	Album  string
	Genre  string
}

// Probe reads the tags of an in-memory audio file. A title is required.
func Probe(data []byte) (*Probed, error) {
	return probe(bytes.NewReader(data))
}

// ProbeFile reads the tags of an audio file on disk
func ProbeFile(path string) (*Probed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return probe(f)
}

func probe(r io.ReadSeeker) (*Probed, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	p := &Probed{
		Format: string(m.Format()),
		Title:  CleanString(m.Title()),
		Artist: CleanString(m.Artist()),
		Album:  CleanString(m.Album()),
		Genre:  CleanString(m.Genre()),
	}
	if p.Artist == "" {
		p.Artist = CleanString(m.AlbumArtist())
	}
	if p.Title == "" {
		return p, ErrNoTitle
	}
	return p, nil
}
