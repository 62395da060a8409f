package source

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

type stubProvider struct {
	name   string
	tracks []track.Track
	err    error
	calls  int
}

func (s *stubProvider) FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error) {
	s.calls++
	return s.tracks, s.err
}

func (s *stubProvider) FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error) {
	s.calls++
	return s.tracks, s.err
}

func (s *stubProvider) Name() string { return s.name }

func TestRankingChain(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		providers []*stubProvider
		wantIDs   []string
		wantErr   bool
		wantCalls []int
	}{
		{
			name: "first provider wins",
			providers: []*stubProvider{
				{name: "a", tracks: []track.Track{{ID: "1"}}},
				{name: "b", tracks: []track.Track{{ID: "2"}}},
			},
			wantIDs:   []string{"1"},
			wantCalls: []int{1, 0},
		},
		{
			name: "falls through errors and empty results",
			providers: []*stubProvider{
				{name: "a", err: boom},
				{name: "b"},
				{name: "c", tracks: []track.Track{{ID: "3"}, {ID: "4"}}},
			},
			wantIDs:   []string{"3", "4"},
			wantCalls: []int{1, 1, 1},
		},
		{
			name: "all empty is an empty ranking",
			providers: []*stubProvider{
				{name: "a"},
				{name: "b"},
			},
			wantIDs:   []string{},
			wantCalls: []int{1, 1},
		},
		{
			name: "all failed",
			providers: []*stubProvider{
				{name: "a", err: boom},
				{name: "b"},
			},
			wantErr:   true,
			wantCalls: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []RankingEntry
			for _, p := range tt.providers {
				entries = append(entries, RankingEntry{Provider: p, DisplayName: p.name})
			}
			chain := NewRankingChain(entries)

			got, err := chain.FetchRanking(context.Background(), trend.PeriodWeek)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrAllProvidersFailed))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantIDs, track.IDs(got))
			}

			for i, p := range tt.providers {
				assert.Equal(t, tt.wantCalls[i], p.calls, "calls of provider %s", p.name)
			}
		})
	}
}

func TestContextChain(t *testing.T) {
	failing := &stubProvider{name: "a", err: errors.New("down")}
	working := &stubProvider{name: "b", tracks: []track.Track{{ID: "r1"}}}
	chain := NewContextChain([]ContextEntry{
		{Provider: failing, DisplayName: "A"},
		{Provider: working, DisplayName: "B"},
	})

	got, err := chain.FetchTracksByContext(context.Background(), "rock")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, track.IDs(got))
	assert.Equal(t, []string{"A", "B"}, chain.Providers())

	working.tracks = nil
	_, err = chain.FetchTracksByContext(context.Background(), "rock")
	assert.True(t, errors.Is(err, ErrAllProvidersFailed))
}
