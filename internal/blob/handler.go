package blob

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/report"
	"github.com/franz/jukebox/internal/util"
)

// DefaultStreamIdle bounds how long one write to a streaming client may block
const DefaultStreamIdle = 30 * time.Second

// streamChunk is the copy unit; the write deadline is renewed per chunk
const streamChunk = 32 << 10

// blobFile is what serving needs from an opened blob
type blobFile interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// Handler serves GET /data/{blobId}
type Handler struct {
	Dir    *Dir
	Gate   *Gate
	Events *report.EventLogger

	// StreamIdle is the longest a single write to the client may block before
	// the stream is abandoned. Zero selects DefaultStreamIdle; negative disables.
	StreamIdle time.Duration

	// open replaces Dir.Open in tests
	open func(id string) (blobFile, error)
}

func (h *Handler) openBlob(id string) (blobFile, error) {
	if h.open != nil {
		return h.open(id)
	}
	f, err := h.Dir.Open(id)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (h *Handler) streamIdle() time.Duration {
	if h.StreamIdle == 0 {
		return DefaultStreamIdle
	}
	return h.StreamIdle
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip, status := h.Gate.Admit(r)
	switch status {
	case 0:
	case http.StatusBadRequest:
		util.WarnLog("No client IP header on %s", r.URL.Path)
		h.reject(w, status)
		return
	default:
		util.DebugLog("IP %s is not allowed", ip)
		h.Events.LogAccessDenied(ip, r.URL.Path)
		h.reject(w, status)
		return
	}
	util.DebugLog("Allowed %s", ip)

	id := r.PathValue("blobId")
	f, err := h.openBlob(id)
	if err != nil {
		util.DebugLog("Blob %q unavailable: %v", id, err)
		h.reject(w, http.StatusNotFound)
		return
	}
	defer f.Close()

	total := int64(-1)
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		total = info.Size()
	}

	header := w.Header()
	header.Set("Accept-Ranges", "bytes")
	header.Set("Content-Type", contentType(id))

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		if total >= 0 {
			header.Set("Content-Length", strconv.FormatInt(total, 10))
		}
		h.stream(w, r, http.StatusOK, f, -1)
		return
	}

	rng, err := ParseRange(rangeHeader)
	if err != nil {
		util.DebugLog("Rejecting range %q: %v", rangeHeader, err)
		h.reject(w, http.StatusBadRequest)
		return
	}
	if total < 0 {
		util.DebugLog("Rejecting range on %s: size unknown", id)
		h.reject(w, http.StatusBadRequest)
		return
	}
	win, err := rng.Window(total)
	if err != nil {
		util.DebugLog("Rejecting range %q on %d bytes: %v", rangeHeader, total, err)
		h.reject(w, http.StatusBadRequest)
		return
	}

	if _, err := f.Seek(win.Start, io.SeekStart); err != nil {
		util.ErrorLog("Seek to %d in %s failed: %v", win.Start, id, err)
		h.reject(w, http.StatusInternalServerError)
		return
	}

	header.Set("Content-Length", strconv.FormatInt(win.Length, 10))
	header.Set("Content-Range", win.ContentRange)
	h.stream(w, r, http.StatusPartialContent, f, win.Length)
}

// stream writes the status and copies from src, limited to n bytes when
// n >= 0. Each chunk gets a fresh write deadline, so a client that stops
// reading releases the handler after StreamIdle. A failed write means the
// client went away; the copy stops and the deferred Close in ServeHTTP
// releases the file.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, status int, src io.Reader, n int64) {
	w.WriteHeader(status)
	metrics.BlobResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	if r.Method == http.MethodHead {
		return
	}

	if n >= 0 {
		src = io.LimitReader(src, n)
	}

	rc := http.NewResponseController(w)
	idle := h.streamIdle()
	deadlines := idle > 0

	var written int64
	buf := make([]byte, streamChunk)
	for {
		nr, readErr := src.Read(buf)
		if nr > 0 {
			if deadlines {
				if err := rc.SetWriteDeadline(time.Now().Add(idle)); err != nil {
					// Recorders and some wrappers cannot carry deadlines
					util.DebugLog("No write deadline for %s: %v", r.URL.Path, err)
					deadlines = false
				}
			}
			nw, err := w.Write(buf[:nr])
			written += int64(nw)
			if err != nil {
				util.DebugLog("Stream of %s stopped after %d bytes: %v", r.URL.Path, written, err)
				break
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				util.ErrorLog("Reading %s failed after %d bytes: %v", r.URL.Path, written, readErr)
			}
			break
		}
	}
	metrics.BlobBytes.Add(float64(written))
}

// audioTypes covers formats missing from the builtin mime table on hosts
// without /etc/mime.types.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
}

func contentType(id string) string {
	ext := strings.ToLower(filepath.Ext(id))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *Handler) reject(w http.ResponseWriter, status int) {
	metrics.BlobResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	w.WriteHeader(status)
}
