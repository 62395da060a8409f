// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey  string
	Timeout time.Duration
}

// TopTrack represents a chart or tag top track.
type TopTrack struct {
	Name      string
	Artist    string
	URL       string
	ImageURL  string
	PlayCount int64
	Listeners int64
	Duration  time.Duration
}

// topTracksResponse is the shared shape of chart.getTopTracks and tag.getTopTracks.
type topTracksResponse struct {
	Tracks struct {
		Track []struct {
			Name      string `json:"name"`
			URL       string `json:"url"`
			Duration  string `json:"duration"`
			PlayCount string `json:"playcount"`
			Listeners string `json:"listeners"`
			Artist    struct {
				Name string `json:"name"`
			} `json:"artist"`
			Image []struct {
				URL  string `json:"#text"`
				Size string `json:"size"`
			} `json:"image"`
		} `json:"track"`
	} `json:"tracks"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetChartTopTracks retrieves global top tracks from Last.fm charts.
// Reference: https://www.last.fm/api/show/chart.getTopTracks
func (c *Client) GetChartTopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	params := url.Values{}
	params.Set("method", "chart.getTopTracks")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response topTracksResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	return convertTopTracks(response), nil
}

// GetTagTopTracks retrieves top tracks for a tag from Last.fm.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTagTopTracks(ctx context.Context, tagName string, limit int) ([]TopTrack, error) {
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}

	params := url.Values{}
	params.Set("method", "tag.getTopTracks")
	params.Set("tag", tagName)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response topTracksResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}

	tracks := convertTopTracks(response)
	zlog.Debug().Msgf("lastfm: tag top tracks: tag=%s count=%d", tagName, len(tracks))
	return tracks, nil
}

// get performs an API call and decodes the JSON response into dest.
func (c *Client) get(ctx context.Context, params url.Values, dest interface{}) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func convertTopTracks(response topTracksResponse) []TopTrack {
	tracks := make([]TopTrack, 0, len(response.Tracks.Track))
	for _, t := range response.Tracks.Track {
		tt := TopTrack{
			Name:      t.Name,
			Artist:    t.Artist.Name,
			URL:       t.URL,
			PlayCount: parseInt(t.PlayCount),
			Listeners: parseInt(t.Listeners),
			Duration:  time.Duration(parseInt(t.Duration)) * time.Second,
		}
		// Images are ordered small to extralarge; keep the largest non-empty one
		for _, img := range t.Image {
			if img.URL != "" {
				tt.ImageURL = img.URL
			}
		}
		tracks = append(tracks, tt)
	}
	return tracks
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// TrackID returns a stable identifier for a Last.fm track that has no
// playable counterpart.
func TrackID(artist, name string) string {
	return fmt.Sprintf("lastfm:%s:%s", url.PathEscape(artist), url.PathEscape(name))
}
