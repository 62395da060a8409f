package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

// ErrAllProvidersFailed is returned when every provider in a chain failed.
var ErrAllProvidersFailed = errors.New("all providers failed")

// RankingEntry wraps a ranking provider with its display name.
type RankingEntry struct {
	Provider    RankingProvider
	DisplayName string
}

// ContextEntry wraps a context provider with its display name.
type ContextEntry struct {
	Provider    ContextProvider
	DisplayName string
}

// RankingChain tries ranking providers in order and returns the first
// non-empty result.
type RankingChain struct {
	providers []RankingEntry
}

// NewRankingChain creates a new ranking chain.
func NewRankingChain(providers []RankingEntry) *RankingChain {
	return &RankingChain{providers: providers}
}

// FetchRanking implements trendcache.Source.
func (c *RankingChain) FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error) {
	var errs error
	for i, pe := range c.providers {
		zlog.Debug().Msgf("trying ranking provider: index=%d total=%d name=%s provider_type=%s period=%s",
			i+1, len(c.providers), pe.DisplayName, pe.Provider.Name(), period)

		tracks, err := pe.Provider.FetchRanking(ctx, period)
		if err != nil {
			zlog.Warn().Msgf("ranking provider failed, trying next: provider=%s error=%v", pe.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "provider %s", pe.DisplayName))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(tracks) == 0 {
			zlog.Debug().Msgf("ranking provider returned no tracks: provider=%s", pe.DisplayName)
			continue
		}

		zlog.Info().Msgf("ranking provider returned tracks: provider=%s period=%s count=%d",
			pe.DisplayName, period, len(tracks))
		return tracks, nil
	}

	if errs != nil {
		return nil, errors.Mark(errs, ErrAllProvidersFailed)
	}
	return []track.Track{}, nil
}

// Providers returns the display names of the chained providers.
func (c *RankingChain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, pe := range c.providers {
		names[i] = pe.DisplayName
	}
	return names
}

// ContextChain tries context providers in order and returns the first
// non-empty result.
type ContextChain struct {
	providers []ContextEntry
}

// NewContextChain creates a new context chain.
func NewContextChain(providers []ContextEntry) *ContextChain {
	return &ContextChain{providers: providers}
}

// FetchTracksByContext returns the tracks of the context identified by key.
func (c *ContextChain) FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error) {
	var errs error
	for i, pe := range c.providers {
		zlog.Debug().Msgf("trying context provider: index=%d total=%d name=%s key=%s",
			i+1, len(c.providers), pe.DisplayName, key)

		tracks, err := pe.Provider.FetchTracksByContext(ctx, key)
		if err != nil {
			zlog.Warn().Msgf("context provider failed, trying next: provider=%s error=%v", pe.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "provider %s", pe.DisplayName))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(tracks) == 0 {
			continue
		}

		zlog.Info().Msgf("context provider returned tracks: provider=%s key=%s count=%d",
			pe.DisplayName, key, len(tracks))
		return tracks, nil
	}

	if errs != nil {
		return nil, errors.Mark(errs, ErrAllProvidersFailed)
	}
	return []track.Track{}, nil
}

// Providers returns the display names of the chained providers.
func (c *ContextChain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, pe := range c.providers {
		names[i] = pe.DisplayName
	}
	return names
}
