package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spindle/internal/cache"
	"spindle/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Discogs API endpoint
	DefaultBaseURL = "https://api.discogs.com"

	// userAgent identifies the client; Discogs rejects anonymous agents
	userAgent = "Spindle/1.0"
)

// Options configures the collection client
type Options struct {
	BaseURL        string
	Token          string // personal access token
	Username       string
	PerPage        int
	RequestsPerMin int  // API rate budget, 60 for authenticated clients
	FetchTracks    bool // fetch per-release track lists (one extra call each)
}

// Client fetches a user's record collection from a Discogs-style catalog
// API, one page at a time. It satisfies collection.AlbumSource.
type Client struct {
	opts     Options
	http     *http.Client
	limiter  *rate.Limiter
	releases *cache.ReleaseCache
	logger   *logrus.Logger
}

// NewClient creates a collection client
func NewClient(opts Options, logger *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 50
	}
	if opts.RequestsPerMin <= 0 {
		opts.RequestsPerMin = 60
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		opts:     opts,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMin)), 1),
		releases: cache.NewReleaseCache(time.Hour),
		logger:   logger,
	}
}

// pageResponse is the wire shape of one collection page
type pageResponse struct {
	Pagination struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
	} `json:"pagination"`
	Releases []struct {
		ID               int `json:"id"`
		BasicInformation struct {
			ID         int      `json:"id"`
			Title      string   `json:"title"`
			Year       int      `json:"year"`
			CoverImage string   `json:"cover_image"`
			Genres     []string `json:"genres"`
			Styles     []string `json:"styles"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"basic_information"`
	} `json:"releases"`
}

// releaseResponse is the wire shape of a per-release detail fetch
type releaseResponse struct {
	Tracklist []struct {
		Position string `json:"position"`
		Type     string `json:"type_"`
		Title    string `json:"title"`
	} `json:"tracklist"`
}

// FetchPage fetches one page of the user's collection. The second return
// value reports whether further pages remain.
func (c *Client) FetchPage(ctx context.Context, page int) ([]models.Album, bool, error) {
	if page == 1 {
		c.releases.Prune()
	}

	query := url.Values{}
	query.Set("page", fmt.Sprintf("%d", page))
	query.Set("per_page", fmt.Sprintf("%d", c.opts.PerPage))

	var resp pageResponse
	path := fmt.Sprintf("/users/%s/collection/folders/0/releases", url.PathEscape(c.opts.Username))
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, false, err
	}

	albums := make([]models.Album, 0, len(resp.Releases))
	for _, release := range resp.Releases {
		info := release.BasicInformation
		album := models.Album{
			ID:       release.ID,
			Title:    info.Title,
			Year:     info.Year,
			Styles:   mergeTags(info.Genres, info.Styles),
			CoverURL: info.CoverImage,
		}
		album.Artist = joinArtists(artistNames(info.Artists))

		if c.opts.FetchTracks {
			tracks, err := c.fetchTracklist(ctx, release.ID)
			if err != nil {
				// A release without its track list is still countable
				c.logger.WithError(err).WithField("release_id", release.ID).Warn("Failed to fetch track list")
			} else {
				album.Tracks = tracks
			}
		}
		albums = append(albums, album)
	}

	more := resp.Pagination.Page < resp.Pagination.Pages
	return albums, more, nil
}

// fetchTracklist fetches a release's track list, serving repeats from the
// release cache
func (c *Client) fetchTracklist(ctx context.Context, releaseID int) ([]models.Track, error) {
	if cached, ok := c.releases.Get(releaseID); ok {
		return cached.Tracks, nil
	}

	var resp releaseResponse
	if err := c.get(ctx, fmt.Sprintf("/releases/%d", releaseID), nil, &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(resp.Tracklist))
	for _, entry := range resp.Tracklist {
		// Tracklists also carry headings and index entries
		if entry.Type != "" && entry.Type != "track" {
			continue
		}
		tracks = append(tracks, models.Track{Position: entry.Position, Title: entry.Title})
	}

	c.releases.Set(releaseID, models.Album{ID: releaseID, Tracks: tracks})
	return tracks, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.opts.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func artistNames(artists []struct {
	Name string `json:"name"`
}) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, stripNameSuffix(artist.Name))
	}
	return names
}

// stripNameSuffix removes the "(2)" style disambiguation Discogs appends
// to non-unique artist names
func stripNameSuffix(name string) string {
	if idx := strings.LastIndex(name, " ("); idx > 0 && strings.HasSuffix(name, ")") {
		trailer := name[idx+2 : len(name)-1]
		if _, err := fmt.Sscanf(trailer, "%d", new(int)); err == nil {
			return name[:idx]
		}
	}
	return name
}

func joinArtists(names []string) string {
	return strings.Join(names, ", ")
}

// mergeTags combines genre and style tags into one multi-valued list,
// dropping duplicates while keeping first-seen order
func mergeTags(genres, styles []string) []string {
	seen := make(map[string]struct{}, len(genres)+len(styles))
	merged := make([]string, 0, len(genres)+len(styles))
	for _, tag := range append(append([]string{}, genres...), styles...) {
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}
