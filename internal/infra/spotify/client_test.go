package spotify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Plain playlist ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "HTTP URL (not HTTPS)",
			input:    "http://open.spotify.com/playlist/testID",
			expected: "testID",
		},
		{
			name:     "URL with multiple query params",
			input:    "https://open.spotify.com/playlist/abc123?si=xyz&utm_source=copy",
			expected: "abc123",
		},
		{
			name:     "Intl URL with trailing slash",
			input:    "https://open.spotify.com/intl-ja/playlist/abc123/",
			expected: "abc123",
		},
		{
			name:     "Track URL is passed through",
			input:    "https://open.spotify.com/track/abc123",
			expected: "https://open.spotify.com/track/abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPlaylistID(tt.input)
			assert.Equal(t, tt.expected, result,
				"extractPlaylistID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      errors.New("Error 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 502",
			err:      errors.New("502 Bad Gateway"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "server error 504",
			err:      errors.New("504 Gateway Timeout"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "not found error",
			err:      errors.New("404 not found"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConvertTrack(t *testing.T) {
	ft := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:         "track1",
			Name:       "Song",
			Duration:   185000,
			PreviewURL: "https://p.scdn.co/mp3-preview/track1",
			Artists: []spotify.SimpleArtist{
				{Name: "Artist A"},
				{Name: "Artist B"},
			},
		},
		Album: spotify.SimpleAlbum{
			Name:                 "Album",
			ReleaseDate:          "2021-03-04",
			ReleaseDatePrecision: "day",
			Images:               []spotify.Image{{URL: "https://i.scdn.co/image/1"}},
		},
		Popularity: 73,
	}

	got := convertTrack(ft)

	assert.Equal(t, "track1", got.ID)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, "Artist A, Artist B", got.Author)
	assert.Equal(t, int64(73), got.PlayCount)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/track1", got.AudioURL)
	assert.Equal(t, "https://i.scdn.co/image/1", got.ImageURL)
	assert.Equal(t, 185*time.Second, got.Duration)
	assert.Equal(t, 2021, got.CreatedAt.Year())
	assert.True(t, got.HasAudio())
}

func TestConvertTrack_NoPreview(t *testing.T) {
	got := convertTrack(&spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{ID: "x"}})
	assert.False(t, got.HasAudio())
	assert.Empty(t, got.ImageURL)
	assert.Empty(t, got.Author)
}
