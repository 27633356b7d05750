package store

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

// lineBreaks may not appear in any field: every record is one line
const lineBreaks = "\r\n"

// Collection is one flat file of line-delimited records with a fixed
// number of fields. It knows how to frame records; locking is left to
// the typed stores built on top of it.
type Collection struct {
	name   string
	path   string
	comma  rune
	fields int
	retry  *util.RetryConfig

	// rename is swapped in tests to interrupt a rewrite between its steps
	rename func(oldpath, newpath string) error
}

func newCollection(name, path string, comma rune, fields int, retry *util.RetryConfig) *Collection {
	c := &Collection{
		name:   name,
		path:   path,
		comma:  comma,
		fields: fields,
		retry:  retry,
	}
	c.rename = func(oldpath, newpath string) error {
		return util.RetryableRename(oldpath, newpath, c.retry)
	}
	return c
}

// Name returns the collection name used in logs and metrics
func (c *Collection) Name() string {
	return c.name
}

// Path returns the live file path
func (c *Collection) Path() string {
	return c.path
}

func (c *Collection) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = c.comma
	cr.FieldsPerRecord = c.fields
	return cr
}

func (c *Collection) newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = c.comma
	return cw
}

// scan feeds every row of the live file to fn in file order. Each line is
// one record and is parsed on its own, so a damaged line (for example an
// unterminated quote) cannot swallow the lines after it. Rows that fail to
// parse reach fn as a nil record and an error wrapping
// util.ErrMalformedRecord; what to do with them is the caller's policy.
// Returning false from fn stops the scan.
//
// A missing live file is reported as an error wrapping fs.ErrNotExist.
func (c *Collection) scan(fn func(record []string, err error) bool) error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("failed to open %s collection: %w", c.name, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("failed to read %s collection: %w", c.name, readErr)
		}

		if strings.TrimRight(line, "\r\n") != "" {
			record, err := c.parseLine(line)
			if err != nil {
				metrics.MalformedRows.WithLabelValues(c.name).Inc()
				if !fn(nil, fmt.Errorf("%w: %s line %d: %v", util.ErrMalformedRecord, c.name, lineNo, err)) {
					return nil
				}
			} else if !fn(record, nil) {
				return nil
			}
		}

		if readErr == io.EOF {
			return nil
		}
	}
}

// parseLine decodes exactly one record from a single line
func (c *Collection) parseLine(line string) ([]string, error) {
	r := c.newReader(strings.NewReader(line))
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	// A quoted field may not continue past the line
	if _, err := r.Read(); err != io.EOF {
		return nil, fmt.Errorf("record does not end at line end")
	}
	return record, nil
}

// readAll returns every parseable row, skipping malformed ones.
// A missing live file yields no rows.
func (c *Collection) readAll() ([][]string, error) {
	var rows [][]string
	err := c.scan(func(record []string, err error) bool {
		if err != nil {
			util.DebugLog("Skipping row: %v", err)
			return true
		}
		rows = append(rows, record)
		return true
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return rows, err
}

// appendRecord writes one record to the end of the live file, creating it
// if needed. Appends do not go through Rewrite.
func (c *Collection) appendRecord(record []string) error {
	f, err := util.RetryableOpenFile(c.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644, c.retry)
	if err != nil {
		return fmt.Errorf("failed to open %s collection for append: %w", c.name, err)
	}

	w := c.newWriter(f)
	if err := w.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s record: %w", c.name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s record: %w", c.name, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s collection: %w", c.name, err)
	}
	return nil
}

// Check scans the whole file and reports how many rows parse and how many
// do not. Used by diagnostics; a missing file counts as empty.
func (c *Collection) Check() (ok int, malformed int, err error) {
	err = c.scan(func(record []string, err error) bool {
		if err != nil {
			malformed++
		} else {
			ok++
		}
		return true
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, 0, nil
	}
	return ok, malformed, err
}
