package source

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/infra/config"
)

// Deps holds the clients providers are built on. Nil members are unavailable.
type Deps struct {
	Songs   SongRepository
	Spotify SpotifyClient
}

// provider is implemented by every provider type.
type provider interface {
	RankingProvider
	ContextProvider
}

func newProvider(pcfg config.ProviderConfig, limit int, deps Deps) (provider, error) {
	switch pcfg.Type {
	case config.ProviderDatabase:
		return NewDatabaseProvider(deps.Songs, limit, pcfg.Settings)
	case config.ProviderSpotify:
		return NewSpotifyProvider(deps.Spotify, limit, pcfg.Settings)
	case config.ProviderLastFm:
		return NewLastFmProvider(deps.Spotify, limit, pcfg.Settings)
	default:
		return nil, errors.Newf("unsupported provider type: %s", pcfg.Type)
	}
}

// NewRankingChainFromConfig creates the ranking provider chain from configuration.
func NewRankingChainFromConfig(cfg *config.Config, deps Deps) (*RankingChain, error) {
	if len(cfg.Sources.Ranking) == 0 {
		return nil, errors.New("no ranking providers configured")
	}

	var providers []RankingEntry
	for i, pcfg := range cfg.Sources.Ranking {
		zlog.Debug().Msgf("creating ranking provider: index=%d type=%s", i+1, pcfg.Type)
		p, err := newProvider(pcfg, cfg.Trends.RankingLimit, deps)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create ranking provider (index %d, type %s)", i, pcfg.Type)
		}
		providers = append(providers, RankingEntry{Provider: p, DisplayName: pcfg.DisplayName})
		zlog.Info().Msgf("registered ranking provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewRankingChain(providers), nil
}

// NewContextChainFromConfig creates the context provider chain from configuration.
func NewContextChainFromConfig(cfg *config.Config, deps Deps) (*ContextChain, error) {
	if len(cfg.Sources.Context) == 0 {
		return nil, errors.New("no context providers configured")
	}

	var providers []ContextEntry
	for i, pcfg := range cfg.Sources.Context {
		zlog.Debug().Msgf("creating context provider: index=%d type=%s", i+1, pcfg.Type)
		p, err := newProvider(pcfg, cfg.Trends.ContextLimit, deps)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create context provider (index %d, type %s)", i, pcfg.Type)
		}
		providers = append(providers, ContextEntry{Provider: p, DisplayName: pcfg.DisplayName})
		zlog.Info().Msgf("registered context provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewContextChain(providers), nil
}
