package server

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/franz/jukebox/internal/util"
)

//go:embed favicon.ico
var faviconICO []byte

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(s.IndexPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			util.ErrorLog("Reading %s failed: %v", s.IndexPath, err)
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/x-icon")
	w.WriteHeader(http.StatusOK)
	w.Write(faviconICO)
}

// audioPage renders a player for the first song matching title and artist
func (s *Server) audioPage(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	artist := r.PathValue("artist")

	song, err := s.Store.Songs.FindByTitleArtist(title, artist)
	if err != nil {
		util.ErrorLog("Song lookup failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if song == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<html><audio controls src=\"/data/%s\"></audio>", html.EscapeString(url.PathEscape(song.Path)))
}
