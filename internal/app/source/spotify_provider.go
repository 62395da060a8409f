package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

// ErrNoPlaylist is returned when no playlist is configured for a period.
var ErrNoPlaylist = errors.New("no playlist configured for period")

type SpotifyProviderConfig struct {
	// Playlists maps a period name to a chart playlist URL. "all" is used for
	// periods without their own playlist.
	Playlists map[string]string `yaml:"playlists" mapstructure:"playlists" validate:"dive,keys,oneof=all month week day,endkeys,required"`
}

// SpotifyProvider reads rankings from chart playlists and genre lists from
// track search.
type SpotifyProvider struct {
	spotify SpotifyClient
	limit   int
	config  *SpotifyProviderConfig
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(spotify SpotifyClient, limit int, settings map[string]any) (*SpotifyProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}

	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("spotify provider validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpotifyProvider{
		spotify: spotify,
		limit:   limit,
		config:  &config,
	}, nil
}

// FetchRanking returns the tracks of the period's chart playlist in playlist order.
func (p *SpotifyProvider) FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error) {
	playlistURL, ok := p.config.Playlists[period.String()]
	if !ok {
		playlistURL, ok = p.config.Playlists[trend.PeriodAll.String()]
	}
	if !ok {
		return nil, errors.Wrapf(ErrNoPlaylist, "%s", period)
	}

	tracks, err := p.spotify.GetPlaylistTracks(ctx, playlistURL, p.limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chart playlist")
	}
	return tracks, nil
}

// FetchTracksByContext searches tracks of the genre key.
func (p *SpotifyProvider) FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error) {
	tracks, err := p.spotify.SearchByGenre(ctx, key, p.limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search genre %q", key)
	}
	return tracks, nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}
