package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig creates a chain holding the playable filter followed by
// every enabled filter of cfg.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	c := NewChain()
	c.Add(NewPlayableFilter())

	for _, name := range RegisteredNames() {
		if name == playableFilterName || !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("enabled filter: %s", name)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
// Filters are only applied if they declare they apply to the given list kind.
func (c *Chain) Execute(ctx context.Context, t track.Track, accepted []track.Track, kind ListKind) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(kind) {
			continue
		}

		result := f.Check(ctx, t, accepted)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns the tracks of the list accepted by the chain, in list order.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track, kind ListKind) []track.Track {
	accepted := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		result := c.Execute(ctx, t, accepted, kind)
		if !result.Accepted {
			zlog.Debug().Msgf("track rejected by filter: list=%s track_id=%s title=%s reason=%s", kind, t.ID, t.Title, result.Code)
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
