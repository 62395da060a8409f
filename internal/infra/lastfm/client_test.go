package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topTracksJSON = `{
	"tracks": {
		"track": [
			{
				"name": "Track 1",
				"duration": "215",
				"playcount": "5000",
				"listeners": "1000",
				"url": "url1",
				"artist": {"name": "Artist 1", "mbid": "ambid1", "url": "aurl1"},
				"image": [
					{"#text": "small.png", "size": "small"},
					{"#text": "large.png", "size": "large"},
					{"#text": "", "size": "extralarge"}
				]
			},
			{
				"name": "Track 2",
				"duration": "0",
				"playcount": "not-a-number",
				"listeners": "500",
				"url": "url2",
				"artist": {"name": "Artist 2"}
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetChartTopTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "chart.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, topTracksJSON)
	})

	tracks, err := client.GetChartTopTracks(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Track 1", tracks[0].Name)
	assert.Equal(t, "Artist 1", tracks[0].Artist)
	assert.Equal(t, int64(5000), tracks[0].PlayCount)
	assert.Equal(t, int64(1000), tracks[0].Listeners)
	assert.Equal(t, 215*time.Second, tracks[0].Duration)
	assert.Equal(t, "large.png", tracks[0].ImageURL)

	assert.Equal(t, int64(0), tracks[1].PlayCount)
	assert.Empty(t, tracks[1].ImageURL)
}

func TestGetTagTopTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tag.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "rock", r.URL.Query().Get("tag"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		fmt.Fprint(w, topTracksJSON)
	})

	tracks, err := client.GetTagTopTracks(context.Background(), "rock", 0)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	_, err = client.GetTagTopTracks(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 10, "message": "Invalid API key"}`)
	})

	_, err := client.GetChartTopTracks(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestHTTPStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetChartTopTracks(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTrackID(t *testing.T) {
	assert.Equal(t, "lastfm:Daft%20Punk:One%20More%20Time", TrackID("Daft Punk", "One More Time"))
}
