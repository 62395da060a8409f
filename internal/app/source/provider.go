// Package source provides the track list providers behind rankings and
// context (genre) screens.
package source

import (
	"context"
	"time"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
	"github.com/osa030/19wave/internal/infra/lastfm"
)

// RankingProvider provides ranked tracks for a trend period.
type RankingProvider interface {
	// FetchRanking returns tracks ordered by rank, best first.
	FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error)

	// Name returns the provider name (used in config).
	Name() string
}

// ContextProvider provides the tracks of a browsing context such as a genre.
type ContextProvider interface {
	FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error)
	Name() string
}

// SongRepository defines the songs database operations needed by providers.
type SongRepository interface {
	TopSongs(ctx context.Context, since time.Time, limit int) ([]track.Track, error)
	SongsByGenre(ctx context.Context, genre string, limit int) ([]track.Track, error)
}

// SpotifyClient defines the Spotify operations needed by providers.
type SpotifyClient interface {
	GetPlaylistTracks(ctx context.Context, playlistURL string, limit int) ([]track.Track, error)
	SearchByGenre(ctx context.Context, genre string, limit int) ([]track.Track, error)
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
}

// LastFmClient defines the Last.fm operations needed by providers.
type LastFmClient interface {
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error)
	GetTagTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
}
