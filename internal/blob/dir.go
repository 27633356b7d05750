package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/franz/jukebox/internal/util"
)

// Dir is the flat directory holding audio blobs. A blob id is a plain file
// name inside it.
type Dir struct {
	root  string
	retry *util.RetryConfig
}

// NewDir returns the blob directory at root, creating it if needed
func NewDir(root string, retry *util.RetryConfig) (*Dir, error) {
	if root == "" {
		root = "./songs"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	if retry == nil {
		retry = util.NoRetryConfig()
	}
	return &Dir{root: root, retry: retry}, nil
}

// Root returns the directory path
func (d *Dir) Root() string {
	return d.root
}

// SanitizeID rejects ids that are empty, hidden, or that would leave the
// blob directory.
func SanitizeID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: empty id", util.ErrInvalidBlobID)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return "", fmt.Errorf("%w: %q contains a path separator", util.ErrInvalidBlobID, id)
	}
	if strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q is hidden or relative", util.ErrInvalidBlobID, id)
	}
	return id, nil
}

// PathFor maps a blob id to its file path
func (d *Dir) PathFor(id string) (string, error) {
	clean, err := SanitizeID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, clean), nil
}

// Open opens a blob for reading. Directories count as missing.
func (d *Dir) Open(id string) (*os.File, error) {
	path, err := d.PathFor(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", util.ErrNotFound, id)
	}
	return f, nil
}

// Exists reports whether a blob is present
func (d *Dir) Exists(id string) bool {
	path, err := d.PathFor(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Save stores r under a fresh random name that keeps the extension of
// filename, and returns the new blob id. The data is written to a hidden
// temporary file and renamed into place once complete.
func (d *Dir) Save(r io.Reader, filename string) (string, error) {
	id := uuid.NewString() + Extension(filename)

	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to set upload permissions: %w", err)
	}

	if err := util.RetryableRename(tmp.Name(), filepath.Join(d.root, id), d.retry); err != nil {
		return "", fmt.Errorf("failed to move upload into place: %w", err)
	}
	return id, nil
}

// Extension returns ".ext" from a client supplied file name, lowercased and
// limited to short alphanumeric extensions. Anything else yields "".
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// Remove deletes a blob. A missing blob is not an error.
func (d *Dir) Remove(id string) error {
	path, err := d.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}
