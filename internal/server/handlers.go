package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/franz/jukebox/internal/auth"
	"github.com/franz/jukebox/internal/meta"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
)

const maxPasswordLen = 999

// bodyOverhead leaves room for the JSON fields around the base64 payload
const bodyOverhead = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// readJSON decodes the request body into v, bounded by limit bytes
func readJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// requireAuth checks Basic credentials before calling next with the
// stored username.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, claimed, ok := s.Auth.Authenticate(r)
		if !ok {
			if claimed != "" {
				util.WarnLog("Invalid login for '%s'", claimed)
				s.Events.LogLoginFailed(claimed, r.URL.Path)
			} else {
				util.DebugLog("No usable auth header on %s", r.URL.Path)
			}
			auth.Challenge(w)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, user string) {
	writeJSON(w, http.StatusOK, map[string]string{"user": user})
}

type updatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request, user string) {
	var req updatePasswordRequest
	if !readJSON(w, r, bodyOverhead, &req) {
		return
	}
	if len(req.NewPassword) == 0 || len(req.NewPassword) > maxPasswordLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be 1 to %d bytes", maxPasswordLen))
		return
	}

	err := s.Store.Users.Update(user, auth.Digest(req.NewPassword))
	s.Events.LogPasswordUpdated(user, err)
	if err != nil {
		util.ErrorLog("Password update for '%s' failed: %v", user, err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	util.InfoLog("Updated password for '%s'", user)
	writeJSON(w, http.StatusOK, struct{}{})
}

type probeSongRequest struct {
	SongData string `json:"song_data_base64"`
}

func (s *Server) probeSong(w http.ResponseWriter, r *http.Request, user string) {
	var req probeSongRequest
	if !readJSON(w, r, s.maxUpload()+bodyOverhead, &req) {
		return
	}
	data, ok := s.decodeSongData(w, req.SongData)
	if !ok {
		return
	}

	probed, err := meta.Probe(data)
	if err != nil {
		util.DebugLog("Probe for '%s' failed: %v", user, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.Enricher.Enrich(r.Context(), probed))
}

type addSongRequest struct {
	Filename string   `json:"song_data_filename"`
	SongData string   `json:"song_data_base64"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	Genres   []string `json:"genres"`
}

func (s *Server) addSong(w http.ResponseWriter, r *http.Request, user string) {
	var req addSongRequest
	if !readJSON(w, r, s.maxUpload()+bodyOverhead, &req) {
		return
	}

	song := &store.Song{
		Title:   meta.CleanString(req.Title),
		Album:   meta.CleanString(req.Album),
		Artists: meta.CleanList(req.Artists),
		Genres:  meta.CleanList(req.Genres),
	}
	if song.Title == "" || len(song.Artists) == 0 {
		writeError(w, http.StatusBadRequest, "title and at least one artist are required")
		return
	}

	data, ok := s.decodeSongData(w, req.SongData)
	if !ok {
		return
	}

	id, err := s.Blobs.Save(bytes.NewReader(data), req.Filename)
	if err != nil {
		util.ErrorLog("Saving upload from '%s' failed: %v", user, err)
		s.Events.LogError("save_upload", err)
		writeError(w, http.StatusInternalServerError, "could not store song data")
		return
	}
	s.Events.LogUploadSaved(user, id, int64(len(data)))

	song.Path = id
	if err := s.Store.Songs.Append(song); err != nil {
		util.ErrorLog("Adding '%s' failed: %v", song.Title, err)
		if rmErr := s.Blobs.Remove(id); rmErr != nil {
			util.WarnLog("Could not remove orphaned blob %s: %v", id, rmErr)
		}
		code := http.StatusInternalServerError
		if errors.Is(err, util.ErrInvalidRecord) {
			code = http.StatusBadRequest
		}
		writeError(w, code, "could not add song")
		return
	}

	s.Events.LogSongAdded(user, song.Title, id)
	util.InfoLog("'%s' added '%s' as %s", user, song.Title, id)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) listSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.Store.Songs.ListAll()
	if err != nil {
		util.ErrorLog("Listing songs failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read catalog")
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// decodeSongData checks the payload size and decodes it
func (s *Server) decodeSongData(w http.ResponseWriter, b64 string) ([]byte, bool) {
	if int64(len(b64)) >= s.maxUpload() {
		writeError(w, http.StatusBadRequest, "song data too large")
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "song data is not valid base64")
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "song data is empty")
		return nil, false
	}
	return data, true
}
