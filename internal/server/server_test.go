package server

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/jukebox/internal/auth"
	"github.com/franz/jukebox/internal/blob"
	"github.com/franz/jukebox/internal/store"
)

type testEnv struct {
	srv     *Server
	handler http.Handler
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(store.Paths{
		Songs:     filepath.Join(dir, "songs.csv"),
		Users:     filepath.Join(dir, "users.csv"),
		Whitelist: filepath.Join(dir, "whitelist.csv"),
	})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	blobs, err := blob.NewDir(filepath.Join(dir, "songs"), nil)
	if err != nil {
		t.Fatalf("blob.NewDir failed: %v", err)
	}
	if err := st.Users.Add("alice", auth.Digest("secret")); err != nil {
		t.Fatalf("Add user failed: %v", err)
	}

	srv := &Server{
		Store:     st,
		Blobs:     blobs,
		Gate:      &blob.Gate{Members: st.Whitelist},
		Auth:      &auth.Authenticator{Store: st.Users},
		IndexPath: filepath.Join(dir, "index.html"),
	}
	return &testEnv{srv: srv, handler: srv.Handler(), dir: dir}
}

func (e *testEnv) do(method, target string, body any, user, password string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// id3Title builds a minimal ID3v2.3 tag with a title and an artist frame
func id3Title(title, artist string) []byte {
	var body []byte
	for _, f := range [][2]string{{"TIT2", title}, {"TPE1", artist}} {
		data := append([]byte{0x00}, f[1]...)
		hdr := make([]byte, 10)
		copy(hdr, f[0])
		binary.BigEndian.PutUint32(hdr[4:8], uint32(len(data)))
		body = append(body, hdr...)
		body = append(body, data...)
	}
	n := len(body)
	header := []byte{'I', 'D', '3', 3, 0, 0, byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
	return append(header, body...)
}

func TestIndexAndFavicon(t *testing.T) {
	e := newTestEnv(t)

	if rec := e.do(http.MethodGet, "/", nil, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET / without index = %d, want 404", rec.Code)
	}

	if err := os.WriteFile(e.srv.IndexPath, []byte("<html>jukebox</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/", "/index.html"} {
		rec := e.do(http.MethodGet, p, nil, "", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "<html>jukebox</html>" {
			t.Errorf("GET %s = %d %q", p, rec.Code, rec.Body.String())
		}
	}

	rec := e.do(http.MethodGet, "/favicon.ico", nil, "", "")
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("GET /favicon.ico = %d with %d bytes", rec.Code, rec.Body.Len())
	}

	if rec := e.do(http.MethodGet, "/nope", nil, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/api/login", nil, "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no credentials = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("Expected WWW-Authenticate challenge")
	}

	if rec := e.do(http.MethodPost, "/api/login", nil, "alice", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}

	rec = e.do(http.MethodPost, "/api/login", nil, "alice", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("valid login = %d, want 200", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["user"] != "alice" {
		t.Errorf("login response = %v", resp)
	}

	if rec := e.do(http.MethodGet, "/api/login", nil, "alice", "secret"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/login = %d, want 405", rec.Code)
	}
}

func TestUpdatePassword(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"empty", "", http.StatusBadRequest},
		{"too long", strings.Repeat("x", 1000), http.StatusBadRequest},
		{"longest allowed", strings.Repeat("x", 999), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/updatePassword", map[string]string{"new_password": tt.password}, "alice", "secret")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				// Restore for the next case
				e.srv.Store.Users.Update("alice", auth.Digest("secret"))
			}
		})
	}

	rec := e.do(http.MethodPost, "/api/updatePassword", map[string]string{"new_password": "hunter2"}, "alice", "secret")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("update = %d %q", rec.Code, rec.Body.String())
	}
	if rec := e.do(http.MethodPost, "/api/login", nil, "alice", "secret"); rec.Code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", rec.Code)
	}
	if rec := e.do(http.MethodPost, "/api/login", nil, "alice", "hunter2"); rec.Code != http.StatusOK {
		t.Errorf("new password rejected: %d", rec.Code)
	}

	creds, err := e.srv.Store.Users.List()
	if err != nil || len(creds) != 1 {
		t.Errorf("Expected one credential row after updates, got %d (%v)", len(creds), err)
	}
}

func TestAddAndListSongs(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/api/listSongs", map[string]any{}, "", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list = %d %q", rec.Code, rec.Body.String())
	}

	add := map[string]any{
		"song_data_filename": "heroes.MP3",
		"song_data_base64":   base64.StdEncoding.EncodeToString([]byte("not really audio")),
		"title":              "Heroes",
		"artists":            []string{"David Bowie", "Brian Eno"},
		"album":              "\"Heroes\"",
		"genres":             []string{"Art Rock"},
	}
	rec = e.do(http.MethodPost, "/api/addSong", add, "alice", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("addSong = %d %q", rec.Code, rec.Body.String())
	}

	rec = e.do(http.MethodGet, "/api/listSongs", nil, "", "")
	var songs []store.Song
	if err := json.Unmarshal(rec.Body.Bytes(), &songs); err != nil {
		t.Fatalf("listSongs returned invalid JSON: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("Expected 1 song, got %d", len(songs))
	}
	song := songs[0]
	if song.Title != "Heroes" || len(song.Artists) != 2 || !strings.HasSuffix(song.Path, ".mp3") {
		t.Errorf("Unexpected song: %+v", song)
	}
	if !e.srv.Blobs.Exists(song.Path) {
		t.Errorf("Blob %s was not saved", song.Path)
	}

	// The audio page finds the song by any of its artists
	rec = e.do(http.MethodGet, "/songs/Heroes/Brian%20Eno", nil, "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `src="/data/`+song.Path+`"`) {
		t.Errorf("audio page = %d %q", rec.Code, rec.Body.String())
	}
	if rec := e.do(http.MethodGet, "/songs/Heroes/Nobody", nil, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown artist = %d, want 404", rec.Code)
	}
	if rec := e.do(http.MethodGet, "/songs/Heroes", nil, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing artist = %d, want 404", rec.Code)
	}

	// The blob is served to whitelisted clients only
	req := httptest.NewRequest(http.MethodGet, "/data/"+song.Path, nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	data := httptest.NewRecorder()
	e.handler.ServeHTTP(data, req)
	if data.Code != http.StatusForbidden {
		t.Errorf("non-whitelisted /data = %d, want 403", data.Code)
	}
	if err := e.srv.Store.Whitelist.Add("10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	data = httptest.NewRecorder()
	e.handler.ServeHTTP(data, req)
	if data.Code != http.StatusOK || data.Body.String() != "not really audio" {
		t.Errorf("whitelisted /data = %d %q", data.Code, data.Body.String())
	}
}

func TestAddSong_Rejects(t *testing.T) {
	e := newTestEnv(t)
	valid := base64.StdEncoding.EncodeToString([]byte("x"))

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no title", map[string]any{"song_data_filename": "a.mp3", "song_data_base64": valid, "artists": []string{"A"}}},
		{"no artists", map[string]any{"song_data_filename": "a.mp3", "song_data_base64": valid, "title": "T"}},
		{"bad base64", map[string]any{"song_data_filename": "a.mp3", "song_data_base64": "!!!", "title": "T", "artists": []string{"A"}}},
		{"empty data", map[string]any{"song_data_filename": "a.mp3", "song_data_base64": "", "title": "T", "artists": []string{"A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/addSong", tt.body, "alice", "secret")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	entries, _ := os.ReadDir(e.srv.Blobs.Root())
	if len(entries) != 0 {
		t.Errorf("Rejected uploads left %d files behind", len(entries))
	}

	if rec := e.do(http.MethodPost, "/api/addSong", tests[0].body, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated addSong = %d, want 401", rec.Code)
	}
}

func TestAddSong_TooLarge(t *testing.T) {
	e := newTestEnv(t)
	e.srv.MaxUpload = 16

	body := map[string]any{
		"song_data_filename": "a.mp3",
		"song_data_base64":   base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 64)),
		"title":              "T",
		"artists":            []string{"A"},
	}
	if rec := e.do(http.MethodPost, "/api/addSong", body, "alice", "secret"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProbeSong(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]string{"song_data_base64": base64.StdEncoding.EncodeToString(id3Title("Heroes", "David Bowie"))}
	rec := e.do(http.MethodPost, "/api/probeSong", body, "alice", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("probeSong = %d %q", rec.Code, rec.Body.String())
	}

	var resp struct {
		Title   string   `json:"title"`
		Artists []string `json:"artists"`
		Album   string   `json:"album"`
		Genres  []string `json:"genres"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Title != "Heroes" || len(resp.Artists) != 1 || resp.Artists[0] != "David Bowie" {
		t.Errorf("Unexpected probe result: %+v", resp)
	}

	body = map[string]string{"song_data_base64": base64.StdEncoding.EncodeToString([]byte("plain text, no tags here"))}
	if rec := e.do(http.MethodPost, "/api/probeSong", body, "alice", "secret"); rec.Code != http.StatusBadRequest {
		t.Errorf("probe of non-audio = %d, want 400", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	e := newTestEnv(t)
	e.do(http.MethodGet, "/api/listSongs", nil, "", "")

	rec := e.do(http.MethodGet, "/metrics", nil, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "jukebox_store_operations_total") {
		t.Error("Expected store operation counters in metrics output")
	}
}
