package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/franz/jukebox/internal/util"
)

const (
	tmpSuffix = ".tmp"
	bakSuffix = ".bak"
)

// Rewrite replaces the whole collection with the records fn writes.
//
// The records go to <path>.tmp, which is flushed, fsynced and closed before
// anything else happens. The live file is then renamed to <path>.bak and
// the temporary file renamed into place. Each step is a single rename, so
// readers see either the old generation or the new one, never a partial file.
//
// If fn or any write step fails, nothing is renamed and the temporary file
// is removed. If the final rename fails the backup is moved back.
// Callers must hold the owning store's write lock.
func (c *Collection) Rewrite(fn func(w *csv.Writer) error) error {
	tmpPath := c.path + tmpSuffix
	bakPath := c.path + bakSuffix

	f, err := util.RetryableOpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644, c.retry)
	if err != nil {
		return fmt.Errorf("failed to create temporary %s file: %w", c.name, err)
	}

	committed := false
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	w := c.newWriter(f)
	if err := fn(w); err != nil {
		return fmt.Errorf("failed to write %s records: %w", c.name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s records: %w", c.name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary %s file: %w", c.name, err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temporary %s file: %w", c.name, err)
	}

	hadLive := true
	if err := c.rename(c.path, bakPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to back up %s collection: %w", c.name, err)
		}
		hadLive = false
	}

	if err := c.rename(tmpPath, c.path); err != nil {
		if hadLive {
			if restoreErr := c.rename(bakPath, c.path); restoreErr != nil {
				util.ErrorLog("Failed to restore %s from %s: %v", c.path, bakPath, restoreErr)
			}
		}
		return fmt.Errorf("failed to move new %s collection into place: %w", c.name, err)
	}
	committed = true

	syncDir(filepath.Dir(c.path))
	return nil
}

// syncDir makes the renames durable across power loss. Best effort.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

// Leftovers lists rewrite siblings present next to the live file. A .tmp
// without a running rewrite means a previous one was interrupted; a .bak is
// the generation before the last successful rewrite.
func (c *Collection) Leftovers() []string {
	var found []string
	for _, suffix := range []string{tmpSuffix, bakSuffix} {
		if _, err := os.Stat(c.path + suffix); err == nil {
			found = append(found, c.path+suffix)
		}
	}
	return found
}
