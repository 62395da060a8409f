package filter

import (
	"context"

	"github.com/osa030/19wave/internal/domain/track"
)

const playableFilterName = "playable_filter"

// PlayableFilter rejects tracks without an audio source.
// It is always part of the chain built from configuration.
type PlayableFilter struct{}

// NewPlayableFilter creates a new playable filter.
func NewPlayableFilter() *PlayableFilter {
	return &PlayableFilter{}
}

func (f *PlayableFilter) Name() string {
	return playableFilterName
}

func (f *PlayableFilter) Description() string {
	return "Drops tracks that have no audio source (always enabled)"
}

func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"not_playable"}
}

func (f *PlayableFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *PlayableFilter) AppliesTo(kind ListKind) bool {
	return true
}

func (f *PlayableFilter) Check(ctx context.Context, t track.Track, accepted []track.Track) Result {
	if !t.HasAudio() {
		return Reject("not_playable")
	}
	return Accept()
}

func init() {
	Register(playableFilterName, func() Filter {
		return NewPlayableFilter()
	})
}
