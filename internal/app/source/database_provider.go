package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

type DatabaseProviderConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit" validate:"gte=0,lte=500"` // 0 uses the global limit
}

// DatabaseProvider ranks songs of the songs database by play count within
// the period window, and lists songs by genre.
type DatabaseProvider struct {
	repo   SongRepository
	limit  int
	now    func() time.Time
	config *DatabaseProviderConfig
}

// NewDatabaseProvider creates a new DatabaseProvider.
func NewDatabaseProvider(repo SongRepository, limit int, settings map[string]any) (*DatabaseProvider, error) {
	if repo == nil {
		return nil, errors.New("songs database is required")
	}

	var config DatabaseProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	if config.Limit > 0 {
		limit = config.Limit
	}

	return &DatabaseProvider{
		repo:   repo,
		limit:  limit,
		now:    time.Now,
		config: &config,
	}, nil
}

// FetchRanking returns the most played songs created within the period window.
func (p *DatabaseProvider) FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error) {
	tracks, err := p.repo.TopSongs(ctx, period.Since(p.now()), p.limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to rank songs for %s", period)
	}
	return tracks, nil
}

// FetchTracksByContext returns the songs of a genre.
func (p *DatabaseProvider) FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error) {
	tracks, err := p.repo.SongsByGenre(ctx, key, p.limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list songs of %q", key)
	}
	return tracks, nil
}

// Name returns the provider name.
func (p *DatabaseProvider) Name() string {
	return "database"
}
