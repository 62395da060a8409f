package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
	"github.com/osa030/19wave/internal/infra/config"
	"github.com/osa030/19wave/internal/infra/lastfm"
)

type fakeSongs struct {
	since time.Time
	limit int
	genre string
}

func (f *fakeSongs) TopSongs(ctx context.Context, since time.Time, limit int) ([]track.Track, error) {
	f.since = since
	f.limit = limit
	return []track.Track{{ID: "top"}}, nil
}

func (f *fakeSongs) SongsByGenre(ctx context.Context, genre string, limit int) ([]track.Track, error) {
	f.genre = genre
	f.limit = limit
	return []track.Track{{ID: "g1", Genre: genre}}, nil
}

type fakeSpotify struct {
	mu        sync.Mutex
	playlists []string
	searches  []string
	catalog   map[string]track.Track // search query -> result
}

func (f *fakeSpotify) GetPlaylistTracks(ctx context.Context, playlistURL string, limit int) ([]track.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists = append(f.playlists, playlistURL)
	return []track.Track{{ID: "p1"}}, nil
}

func (f *fakeSpotify) SearchByGenre(ctx context.Context, genre string, limit int) ([]track.Track, error) {
	return []track.Track{{ID: "s1", Genre: genre}}, nil
}

func (f *fakeSpotify) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if t, ok := f.catalog[query]; ok {
		return []track.Track{t}, nil
	}
	return []track.Track{}, nil
}

type fakeLastFm struct {
	chart []lastfm.TopTrack
	err   error
}

func (f *fakeLastFm) GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error) {
	return f.chart, f.err
}

func (f *fakeLastFm) GetTagTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error) {
	return f.chart, f.err
}

func TestDatabaseProvider(t *testing.T) {
	songs := &fakeSongs{}
	p, err := NewDatabaseProvider(songs, 25, nil)
	require.NoError(t, err)
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err = p.FetchRanking(context.Background(), trend.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), songs.since)
	assert.Equal(t, 25, songs.limit)

	_, err = p.FetchRanking(context.Background(), trend.PeriodAll)
	require.NoError(t, err)
	assert.True(t, songs.since.IsZero())

	got, err := p.FetchTracksByContext(context.Background(), "jazz")
	require.NoError(t, err)
	assert.Equal(t, "jazz", songs.genre)
	assert.Equal(t, "jazz", got[0].Genre)

	p, err = NewDatabaseProvider(songs, 25, map[string]any{"limit": 5})
	require.NoError(t, err)
	_, _ = p.FetchRanking(context.Background(), trend.PeriodDay)
	assert.Equal(t, 5, songs.limit)

	_, err = NewDatabaseProvider(nil, 25, nil)
	assert.Error(t, err)
}

func TestSpotifyProvider(t *testing.T) {
	sp := &fakeSpotify{}
	p, err := NewSpotifyProvider(sp, 50, map[string]any{
		"playlists": map[string]any{
			"all":  "spotify:playlist:global",
			"week": "spotify:playlist:weekly",
		},
	})
	require.NoError(t, err)

	_, err = p.FetchRanking(context.Background(), trend.PeriodWeek)
	require.NoError(t, err)
	_, err = p.FetchRanking(context.Background(), trend.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify:playlist:weekly", "spotify:playlist:global"}, sp.playlists)

	got, err := p.FetchTracksByContext(context.Background(), "rock")
	require.NoError(t, err)
	assert.Equal(t, "rock", got[0].Genre)

	noPlaylists, err := NewSpotifyProvider(sp, 50, nil)
	require.NoError(t, err)
	_, err = noPlaylists.FetchRanking(context.Background(), trend.PeriodDay)
	assert.True(t, errors.Is(err, ErrNoPlaylist))

	_, err = NewSpotifyProvider(sp, 50, map[string]any{
		"playlists": map[string]any{"year": "x"},
	})
	assert.Error(t, err, "unknown period key")

	_, err = NewSpotifyProvider(nil, 50, nil)
	assert.Error(t, err)
}

func TestLastFmProvider_Config(t *testing.T) {
	cfg, err := decodeLastFmConfig(map[string]any{"api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, cfg.Periods)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.SkipSpotify)

	_, err = decodeLastFmConfig(map[string]any{"periods": []any{"all"}})
	assert.Error(t, err, "api key is required")

	_, err = decodeLastFmConfig(map[string]any{"api_key": "k", "periods": []any{"year"}})
	assert.Error(t, err)

	_, err = NewLastFmProvider(nil, 10, nil)
	assert.Error(t, err)
}

func TestLastFmProvider_ResolvesOnSpotify(t *testing.T) {
	lfm := &fakeLastFm{chart: []lastfm.TopTrack{
		{Name: "One", Artist: "X", PlayCount: 300},
		{Name: "Missing", Artist: "Y", PlayCount: 200},
		{Name: "Two", Artist: "Z", PlayCount: 100},
	}}
	sp := &fakeSpotify{catalog: map[string]track.Track{
		"track:One artist:X": {ID: "sp1", Title: "One", AudioURL: "https://p/1", PlayCount: 55},
		"track:Two artist:Z": {ID: "sp2", Title: "Two", AudioURL: "https://p/2"},
	}}
	cfg, err := decodeLastFmConfig(map[string]any{"api_key": "k", "periods": []any{"all", "week"}})
	require.NoError(t, err)
	p := newLastFmProvider(lfm, sp, 10, cfg)

	got, err := p.FetchRanking(context.Background(), trend.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{"sp1", "sp2"}, track.IDs(got), "chart order kept, unmatched dropped")
	assert.Equal(t, int64(300), got[0].PlayCount)

	// Second fetch is served from the search cache
	_, err = p.FetchRanking(context.Background(), trend.PeriodAll)
	require.NoError(t, err)
	assert.Len(t, sp.searches, 3)

	got, err = p.FetchRanking(context.Background(), trend.PeriodDay)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = p.FetchTracksByContext(context.Background(), "electronic")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "electronic", got[0].Genre)
}

func TestLastFmProvider_WithoutSpotify(t *testing.T) {
	lfm := &fakeLastFm{chart: []lastfm.TopTrack{{Name: "One", Artist: "X", PlayCount: 3, Duration: time.Minute}}}
	cfg, err := decodeLastFmConfig(map[string]any{"api_key": "k", "skip_spotify": true})
	require.NoError(t, err)
	p := newLastFmProvider(lfm, &fakeSpotify{}, 10, cfg)

	got, err := p.FetchRanking(context.Background(), trend.PeriodAll)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lastfm.TrackID("X", "One"), got[0].ID)
	assert.Equal(t, "X", got[0].Author)
	assert.False(t, got[0].HasAudio())

	lfm.err = errors.New("down")
	_, err = p.FetchRanking(context.Background(), trend.PeriodAll)
	assert.Error(t, err)
}

func TestNewChainsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Sources: config.SourcesConfig{
			Ranking: []config.ProviderConfig{
				{Type: config.ProviderDatabase, DisplayName: "Songs"},
				{Type: config.ProviderSpotify, DisplayName: "Charts", Settings: map[string]any{
					"playlists": map[string]any{"all": "spotify:playlist:x"},
				}},
			},
			Context: []config.ProviderConfig{
				{Type: config.ProviderDatabase, DisplayName: "Songs"},
			},
		},
		Trends: config.TrendsConfig{RankingLimit: 10, ContextLimit: 20},
	}
	deps := Deps{Songs: &fakeSongs{}, Spotify: &fakeSpotify{}}

	ranking, err := NewRankingChainFromConfig(cfg, deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"Songs", "Charts"}, ranking.Providers())

	contexts, err := NewContextChainFromConfig(cfg, deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"Songs"}, contexts.Providers())

	_, err = NewRankingChainFromConfig(cfg, Deps{Songs: &fakeSongs{}})
	assert.Error(t, err, "spotify provider without client")

	cfg.Sources.Ranking = []config.ProviderConfig{{Type: "youtube", DisplayName: "YT"}}
	_, err = NewRankingChainFromConfig(cfg, deps)
	assert.Error(t, err)

	cfg.Sources.Ranking = nil
	_, err = NewRankingChainFromConfig(cfg, deps)
	assert.Error(t, err)
}
