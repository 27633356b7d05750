// Package musicbrainz looks up recording metadata on the MusicBrainz web
// service. All requests made by a Client share one semaphore and a minimum
// spacing, so concurrent uploads never exceed the service's rate limit.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/franz/jukebox/internal/metrics"
	"github.com/franz/jukebox/internal/util"
)

const (
	// BaseURL is the MusicBrainz API base URL
	BaseURL = "https://musicbrainz.org/ws/2"

	// UserAgent identifies this application to MusicBrainz
	// MusicBrainz requires a proper user agent
	UserAgent = "jukebox/1.0 (https://github.com/franz/jukebox)"

	// DefaultInterval is the minimum spacing between two requests
	DefaultInterval = 1500 * time.Millisecond
)

// ClientConfig holds client settings. Zero values select the defaults.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Interval  time.Duration
	Timeout   time.Duration
}

// Client handles MusicBrainz API requests with rate limiting
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	interval   time.Duration

	sem         *semaphore.Weighted
	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new MusicBrainz API client
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		interval:   cfg.Interval,
		sem:        semaphore.NewWeighted(1),
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if c.baseURL == "" {
		c.baseURL = BaseURL
	}
	if c.userAgent == "" {
		c.userAgent = UserAgent
	}
	if c.interval == 0 {
		c.interval = DefaultInterval
	}
	return c
}

// ReleaseGroup is an album-level entity
type ReleaseGroup struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// ArtistCredit names one credited artist of a recording
type ArtistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

// Release is a concrete release a recording appears on
type Release struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Genre is a MusicBrainz genre
type Genre struct {
	Name string `json:"name"`
}

// Recording is a track-level entity
type Recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	Releases     []Release      `json:"releases"`
	Genres       []Genre        `json:"genres"`
	Tags         []Genre        `json:"tags"`
}

// ArtistNames returns the credited artist names in credit order
func (r *Recording) ArtistNames() []string {
	names := make([]string, 0, len(r.ArtistCredit))
	for _, c := range r.ArtistCredit {
		name := c.Artist.Name
		if name == "" {
			name = c.Name
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// GenreNames returns the recording genres. Search results often carry
// genres only as tags, so tags are used when no genres are present.
func (r *Recording) GenreNames() []string {
	src := r.Genres
	if len(src) == 0 {
		src = r.Tags
	}
	names := make([]string, 0, len(src))
	for _, g := range src {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}

type releaseGroupSearchResult struct {
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

type recordingSearchResult struct {
	Recordings []Recording `json:"recordings"`
}

// SearchReleaseGroup returns the best release group for album by artist,
// or nil when nothing matches.
func (c *Client) SearchReleaseGroup(ctx context.Context, album, artist string) (*ReleaseGroup, error) {
	if album == "" {
		return nil, fmt.Errorf("album cannot be empty")
	}

	q := field("releasegroup", album)
	if artist != "" {
		q += " AND " + field("artist", artist)
	}

	var result releaseGroupSearchResult
	if err := c.search(ctx, "release-group", q, false, &result); err != nil {
		return nil, err
	}
	if len(result.ReleaseGroups) == 0 {
		util.DebugLog("MusicBrainz: no release group for '%s'", album)
		return nil, nil
	}

	rg := &result.ReleaseGroups[0]
	util.DebugLog("MusicBrainz: found release group '%s' (score: %d, MBID: %s)", rg.Title, rg.Score, rg.ID)
	return rg, nil
}

// RecordingQuery narrows a recording search. Empty fields are left out.
type RecordingQuery struct {
	Title          string
	Artist         string
	ReleaseGroupID string
}

func (q RecordingQuery) String() string {
	parts := []string{field("recording", q.Title)}
	if q.Artist != "" {
		parts = append(parts, field("artist", q.Artist))
	}
	if q.ReleaseGroupID != "" {
		parts = append(parts, field("rgid", q.ReleaseGroupID))
	}
	return strings.Join(parts, " AND ")
}

// SearchRecording returns the best recording for q including its genres,
// or nil when nothing matches.
func (c *Client) SearchRecording(ctx context.Context, q RecordingQuery) (*Recording, error) {
	if q.Title == "" {
		return nil, fmt.Errorf("recording title cannot be empty")
	}

	var result recordingSearchResult
	if err := c.search(ctx, "recording", q.String(), true, &result); err != nil {
		return nil, err
	}
	if len(result.Recordings) == 0 {
		util.DebugLog("MusicBrainz: no recording for %s", q)
		return nil, nil
	}

	rec := &result.Recordings[0]
	util.DebugLog("MusicBrainz: found recording '%s' (score: %d, MBID: %s)", rec.Title, rec.Score, rec.ID)
	return rec, nil
}

func (c *Client) search(ctx context.Context, entity, query string, genres bool, out any) error {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", "5")
	if genres {
		params.Set("inc", "genres")
	}
	urlStr := fmt.Sprintf("%s/%s/?%s", c.baseURL, entity, params.Encode())

	util.DebugLog("MusicBrainz API: %s search %s", entity, query)

	err := c.get(ctx, urlStr, out)
	metrics.MusicBrainzRequests.WithLabelValues(metrics.Result(err)).Inc()
	return err
}

// get performs one rate limited request and decodes the JSON body into out
func (c *Client) get(ctx context.Context, urlStr string, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if err := c.waitForRateLimit(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("MusicBrainz service unavailable (503) - rate limit exceeded or maintenance")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// waitForRateLimit sleeps until interval has passed since the previous
// request. Callers hold the semaphore.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.lastRequest.Add(c.interval))
	c.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.mu.Lock()
	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

// field renders a quoted Lucene term
func field(name, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`%s:"%s"`, name, escaped)
}
