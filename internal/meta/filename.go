package meta

import (
	"path/filepath"
	"regexp"
	"strings"
)

// filenamePatterns are tried in order against the file name without its
// extension. Each yields an artist (possibly empty) and a title.
var filenamePatterns = []struct {
	re     *regexp.Regexp
	artist int
	title  int
}{
	// "01 - Artist - Title"
	{regexp.MustCompile(`^\d+\s*[-_.]\s*(.+?)\s+-\s+(.+)$`), 1, 2},
	// "01 - Title"
	{regexp.MustCompile(`^\d+\s*[-_.]\s*(.+)$`), 0, 1},
	// "Artist - Title"
	{regexp.MustCompile(`^(.+?)\s+-\s+(.+)$`), 1, 2},
}

// FromFilename guesses artist and title from a file name. If no pattern
// matches, the whole name is the title.
func FromFilename(path string) (artist, title string) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	for _, p := range filenamePatterns {
		matches := p.re.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		if p.artist > 0 {
			artist = CleanString(matches[p.artist])
		}
		title = CleanString(strings.ReplaceAll(matches[p.title], "_", " "))
		if title != "" {
			return artist, title
		}
	}

	return "", CleanString(strings.ReplaceAll(name, "_", " "))
}
