package database

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19wave/internal/domain/track"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seed(t *testing.T, repo *Repository, now time.Time) {
	t.Helper()
	songs := []track.Track{
		{ID: "old-hit", Title: "Old Hit", Author: "A", Genre: "Rock", PlayCount: 100, AudioURL: "songs/old.mp3", CreatedAt: now.Add(-60 * 24 * time.Hour)},
		{ID: "month", Title: "Month", Author: "B", Genre: "J-Pop", PlayCount: 50, AudioURL: "songs/month.mp3", CreatedAt: now.Add(-20 * 24 * time.Hour)},
		{ID: "week", Title: "Week", Author: "C", Genre: "rock", PlayCount: 10, AudioURL: "songs/week.mp3", CreatedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: "today", Title: "Today", Author: "D", Genre: "Jazz", PlayCount: 1, AudioURL: "songs/today.mp3", Duration: 3 * time.Minute, CreatedAt: now.Add(-time.Hour)},
	}
	for _, s := range songs {
		require.NoError(t, repo.UpsertTrack(context.Background(), s))
	}
}

func TestRepository_TopSongs(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()
	seed(t, repo, now)
	ctx := context.Background()

	tests := []struct {
		name  string
		since time.Time
		limit int
		want  []string
	}{
		{"all time", time.Time{}, 10, []string{"old-hit", "month", "week", "today"}},
		{"last 30 days", now.Add(-30 * 24 * time.Hour), 10, []string{"month", "week", "today"}},
		{"last 7 days", now.Add(-7 * 24 * time.Hour), 10, []string{"week", "today"}},
		{"last 24 hours", now.Add(-24 * time.Hour), 10, []string{"today"}},
		{"limited", time.Time{}, 2, []string{"old-hit", "month"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.TopSongs(ctx, tt.since, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, track.IDs(got))
		})
	}
}

func TestRepository_SongsByGenre(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, time.Now())

	got, err := repo.SongsByGenre(context.Background(), "ROCK", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"week", "old-hit"}, track.IDs(got), "case-insensitive, newest first")

	got, err = repo.SongsByGenre(context.Background(), "pop", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"month"}, track.IDs(got))

	got, err = repo.SongsByGenre(context.Background(), "metal", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_SongsByGenreMatchesWildcardsLiterally(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, time.Now())
	ctx := context.Background()
	require.NoError(t, repo.UpsertTrack(ctx, track.Track{ID: "lofi", Title: "Lo", Genre: "Lo_Fi 100%", CreatedAt: time.Now()}))

	tests := []struct {
		genre string
		want  []string
	}{
		{"_", []string{"lofi"}},
		{"%", []string{"lofi"}},
		{"lo_fi", []string{"lofi"}},
		{"loxfi", nil},
		{"j_pop", nil},
		{`\`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			got, err := repo.SongsByGenre(ctx, tt.genre, 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, track.IDs(got))
		})
	}
}

func TestRepository_IncrementPlayCount(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, time.Now())
	ctx := context.Background()

	require.NoError(t, repo.IncrementPlayCount(ctx, "today"))
	require.NoError(t, repo.IncrementPlayCount(ctx, "today"))

	song, err := repo.GetSong(ctx, "today")
	require.NoError(t, err)
	assert.Equal(t, int64(3), song.PlayCount)
	assert.Equal(t, 3*time.Minute, song.Duration)
	assert.Equal(t, "songs/today.mp3", song.AudioURL)

	err = repo.IncrementPlayCount(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSongNotFound))

	_, err = repo.GetSong(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSongNotFound))
}

func TestRepository_UpsertKeepsPlayCount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.UpsertTrack(ctx, track.Track{ID: "s1", Title: "Draft", PlayCount: 7, CreatedAt: createdAt}))
	require.NoError(t, repo.UpsertTrack(ctx, track.Track{ID: "s1", Title: "Final", Genre: "Ambient", PlayCount: 0}))

	song, err := repo.GetSong(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Final", song.Title)
	assert.Equal(t, "Ambient", song.Genre)
	assert.Equal(t, int64(7), song.PlayCount)
	assert.True(t, createdAt.Equal(song.CreatedAt))

	n, err := repo.CountSongs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Error(t, repo.UpsertTrack(ctx, track.Track{Title: "No ID"}))
}
