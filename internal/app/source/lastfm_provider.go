package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
	"github.com/osa030/19wave/internal/infra/lastfm"
)

type LastFmProviderConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	// Periods answered from the global chart, which has no time window of its own.
	Periods []string `yaml:"periods" mapstructure:"periods" default:"[\"all\"]" validate:"min=1,dive,oneof=all month week day"`
	// Keep Last.fm tracks as they are instead of resolving them to playable
	// Spotify tracks when a Spotify client is available.
	SkipSpotify bool `yaml:"skip_spotify" mapstructure:"skip_spotify"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency" default:"4" validate:"gte=1,lte=16"`
}

// LastFmProvider provides rankings from the Last.fm charts and genre lists
// from Last.fm tag charts.
type LastFmProvider struct {
	lastfm  LastFmClient
	spotify SpotifyClient // may be nil

	// Cache for Spotify search results
	spotifySearchCache map[string]*track.Track
	cacheMutex         sync.RWMutex

	limit  int
	config *LastFmProviderConfig
}

// NewLastFmProvider creates a new LastFmProvider. spotify may be nil.
func NewLastFmProvider(spotify SpotifyClient, limit int, settings map[string]any) (*LastFmProvider, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	config, err := decodeLastFmConfig(settings)
	if err != nil {
		return nil, err
	}

	lastfmClient, err := lastfm.New(lastfm.Config{APIKey: config.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}

	return newLastFmProvider(lastfmClient, spotify, limit, config), nil
}

func decodeLastFmConfig(settings map[string]any) (*LastFmProviderConfig, error) {
	var config LastFmProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

func newLastFmProvider(lfm LastFmClient, spotify SpotifyClient, limit int, config *LastFmProviderConfig) *LastFmProvider {
	if config.SkipSpotify {
		spotify = nil
	}
	return &LastFmProvider{
		lastfm:             lfm,
		spotify:            spotify,
		spotifySearchCache: make(map[string]*track.Track),
		limit:              limit,
		config:             config,
	}
}

// FetchRanking returns the global chart for the configured periods.
// Other periods yield no tracks so the chain moves on.
func (p *LastFmProvider) FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error) {
	if !p.servesPeriod(period) {
		zlog.Debug().Msgf("lastfm provider does not serve period %s", period)
		return []track.Track{}, nil
	}

	chart, err := p.lastfm.GetChartTopTracks(ctx, p.limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chart top tracks")
	}
	return p.resolve(ctx, chart, ""), nil
}

// FetchTracksByContext returns the top tracks of the tag key.
func (p *LastFmProvider) FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error) {
	top, err := p.lastfm.GetTagTopTracks(ctx, key, p.limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get top tracks for tag %q", key)
	}
	return p.resolve(ctx, top, key), nil
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}

func (p *LastFmProvider) servesPeriod(period trend.Period) bool {
	for _, s := range p.config.Periods {
		if s == period.String() {
			return true
		}
	}
	return false
}

// resolve converts Last.fm tracks to domain tracks, keeping chart order.
// With a Spotify client each track is replaced by its Spotify match, and
// tracks without a match are dropped.
func (p *LastFmProvider) resolve(ctx context.Context, top []lastfm.TopTrack, genre string) []track.Track {
	if p.spotify == nil {
		tracks := make([]track.Track, 0, len(top))
		for _, t := range top {
			tracks = append(tracks, track.Track{
				ID:        lastfm.TrackID(t.Artist, t.Name),
				Title:     t.Name,
				Author:    t.Artist,
				Genre:     genre,
				PlayCount: t.PlayCount,
				ImageURL:  t.ImageURL,
				Duration:  t.Duration,
			})
		}
		return tracks
	}

	resolved := make([]*track.Track, len(top))
	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup
	for i, t := range top {
		wg.Add(1)
		go func(i int, t lastfm.TopTrack) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			found := p.searchOnSpotify(ctx, t.Name, t.Artist)
			if found == nil {
				return
			}
			st := *found
			st.PlayCount = t.PlayCount
			if genre != "" {
				st.Genre = genre
			}
			resolved[i] = &st
		}(i, t)
	}
	wg.Wait()

	tracks := make([]track.Track, 0, len(top))
	seen := make(map[string]bool)
	for _, t := range resolved {
		if t == nil || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		tracks = append(tracks, *t)
	}
	return tracks
}

// searchOnSpotify searches for a track on Spotify with caching.
func (p *LastFmProvider) searchOnSpotify(ctx context.Context, trackName, artistName string) *track.Track {
	key := fmt.Sprintf("%s:%s", trackName, artistName)

	p.cacheMutex.RLock()
	if cached, ok := p.spotifySearchCache[key]; ok {
		p.cacheMutex.RUnlock()
		return cached
	}
	p.cacheMutex.RUnlock()

	query := fmt.Sprintf("track:%s artist:%s", trackName, artistName)
	results, err := p.spotify.Search(ctx, query, 1)
	if err != nil {
		// Not cached, a later fetch may succeed
		zlog.Debug().Msgf("spotify search failed: query=%s error=%v", query, err)
		return nil
	}

	var found *track.Track
	if len(results) > 0 {
		found = &results[0]
	}

	// Cache misses too, to avoid repeated failed searches
	p.cacheMutex.Lock()
	p.spotifySearchCache[key] = found
	p.cacheMutex.Unlock()

	return found
}
