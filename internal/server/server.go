// Package server wires the jukebox HTTP surface: the web page, the JSON
// API, the audio page and the blob route.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/franz/jukebox/internal/auth"
	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/meta"
	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/report"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
)

// DefaultMaxUpload bounds the base64 song payload of probe and add requests
const DefaultMaxUpload = 130 << 20

// Server holds everything the handlers need
type Server struct {
	Store    *store.Store
	Blobs    *blob.Dir
	Gate     *blob.Gate
	Auth     *auth.Authenticator
	Enricher *meta.Enricher
	Events   *report.EventLogger

	// IndexPath is the web page served at / and /index.html
	IndexPath string
	// MaxUpload is the exclusive upper bound on song_data_base64 length
	MaxUpload int64
	// StreamIdle bounds each blocked write of an audio stream (0 = default)
	StreamIdle time.Duration
}

// Timeouts for the HTTP server. Zero means no timeout.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// Handler returns the routed and logged HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /index.html", s.index)
	mux.HandleFunc("GET /favicon.ico", favicon)
	mux.HandleFunc("GET /songs/{title}", s.audioPage)
	mux.HandleFunc("GET /songs/{title}/{artist...}", s.audioPage)
	mux.Handle("GET /data/{blobId}", &blob.Handler{Dir: s.Blobs, Gate: s.Gate, Events: s.Events, StreamIdle: s.StreamIdle})

	mux.HandleFunc("POST /api/login", s.requireAuth(s.login))
	mux.HandleFunc("POST /api/updatePassword", s.requireAuth(s.updatePassword))
	mux.HandleFunc("POST /api/probeSong", s.requireAuth(s.probeSong))
	mux.HandleFunc("POST /api/addSong", s.requireAuth(s.addSong))
	mux.HandleFunc("GET /api/listSongs", s.listSongs)
	mux.HandleFunc("POST /api/listSongs", s.listSongs)

	mux.Handle("GET /metrics", metrics.Handler())

	return logRequests(mux)
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts it
// down gracefully, waiting up to grace for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener, t Timeouts, grace time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: t.ReadHeader,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		util.InfoLog("Listening for HTTP requests on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		util.InfoLog("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) maxUpload() int64 {
	if s.MaxUpload > 0 {
		return s.MaxUpload
	}
	return DefaultMaxUpload
}

// statusRecorder captures the response status for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests logs "METHOD path => status" at debug level
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		util.DebugLog("%s %s => %d", r.Method, r.URL.Path, rec.status)
	})
}
