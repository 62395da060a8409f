// Package database provides the songs repository backed by SQLite or PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
)

// ErrSongNotFound is returned when a song ID does not exist.
var ErrSongNotFound = errors.New("song not found")

var schema = []string{
	`create table if not exists songs (
		id          text primary key,
		title       text not null,
		author      text not null default '',
		genre       text not null default '',
		song_path   text not null default '',
		image_path  text not null default '',
		duration_ms bigint not null default 0,
		count       bigint not null default 0,
		created_at  bigint not null
	)`,
	`create index if not exists songs_created_at_idx on songs (created_at)`,
	`create index if not exists songs_genre_idx on songs (genre)`,
}

const songColumns = `id, title, author, genre, song_path, image_path, duration_ms, count, created_at`

type songRow struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	Author     string `db:"author"`
	Genre      string `db:"genre"`
	SongPath   string `db:"song_path"`
	ImagePath  string `db:"image_path"`
	DurationMs int64  `db:"duration_ms"`
	Count      int64  `db:"count"`
	CreatedAt  int64  `db:"created_at"`
}

func (r songRow) toTrack() track.Track {
	return track.Track{
		ID:        r.ID,
		Title:     r.Title,
		Author:    r.Author,
		Genre:     r.Genre,
		PlayCount: r.Count,
		AudioURL:  r.SongPath,
		ImageURL:  r.ImagePath,
		Duration:  time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}

func fromTrack(t track.Track) songRow {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return songRow{
		ID:         t.ID,
		Title:      t.Title,
		Author:     t.Author,
		Genre:      t.Genre,
		SongPath:   t.AudioURL,
		ImagePath:  t.ImageURL,
		DurationMs: t.Duration.Milliseconds(),
		Count:      t.PlayCount,
		CreatedAt:  createdAt.Unix(),
	}
}

// Repository is the songs repository.
type Repository struct {
	db *sqlx.DB
}

// Open connects to the database and creates the schema if needed.
// driver is "sqlite3" or "postgres".
func Open(driver, dsn string) (*Repository, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", driver)
	}

	// Every connection to an in-memory SQLite database is a separate database
	if driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to create schema")
		}
	}

	zlog.Debug().Msgf("database: connected driver=%s", driver)
	return &Repository{db: db}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// TopSongs returns songs created at or after since, most played first.
// A zero since includes every song.
func (r *Repository) TopSongs(ctx context.Context, since time.Time, limit int) ([]track.Track, error) {
	var rows []songRow
	var err error
	if since.IsZero() {
		query := r.db.Rebind(`select ` + songColumns + ` from songs
			order by count desc, created_at desc
			limit ?`)
		err = r.db.SelectContext(ctx, &rows, query, limit)
	} else {
		query := r.db.Rebind(`select ` + songColumns + ` from songs
			where created_at >= ?
			order by count desc, created_at desc
			limit ?`)
		err = r.db.SelectContext(ctx, &rows, query, since.Unix(), limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query top songs")
	}
	return toTracks(rows), nil
}

// likeEscaper quotes LIKE wildcards so a genre matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SongsByGenre returns songs whose genre contains genre (case-insensitive), newest first.
func (r *Repository) SongsByGenre(ctx context.Context, genre string, limit int) ([]track.Track, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(genre))) + "%"
	query := r.db.Rebind(`select ` + songColumns + ` from songs
		where lower(genre) like ? escape '\'
		order by created_at desc
		limit ?`)

	var rows []songRow
	if err := r.db.SelectContext(ctx, &rows, query, pattern, limit); err != nil {
		return nil, errors.Wrapf(err, "failed to query songs by genre %q", genre)
	}
	return toTracks(rows), nil
}

// GetSong returns a single song.
func (r *Repository) GetSong(ctx context.Context, id string) (*track.Track, error) {
	query := r.db.Rebind(`select ` + songColumns + ` from songs where id = ?`)

	var row songRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrSongNotFound, "id %s", id)
		}
		return nil, errors.Wrap(err, "failed to query song")
	}
	t := row.toTrack()
	return &t, nil
}

// IncrementPlayCount records one play of a song.
func (r *Repository) IncrementPlayCount(ctx context.Context, id string) error {
	query := r.db.Rebind(`update songs set count = count + 1 where id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to increment play count")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrSongNotFound, "id %s", id)
	}
	return nil
}

// UpsertTrack inserts a song or updates its metadata. Play counts of
// existing songs are kept.
func (r *Repository) UpsertTrack(ctx context.Context, t track.Track) error {
	if t.ID == "" {
		return errors.New("song id is required")
	}
	query := `insert into songs (` + songColumns + `)
		values (:id, :title, :author, :genre, :song_path, :image_path, :duration_ms, :count, :created_at)
		on conflict (id) do update set
			title = excluded.title,
			author = excluded.author,
			genre = excluded.genre,
			song_path = excluded.song_path,
			image_path = excluded.image_path,
			duration_ms = excluded.duration_ms`

	if _, err := r.db.NamedExecContext(ctx, query, fromTrack(t)); err != nil {
		return errors.Wrapf(err, "failed to upsert song %s", t.ID)
	}
	return nil
}

// CountSongs returns the number of songs.
func (r *Repository) CountSongs(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `select count(*) from songs`); err != nil {
		return 0, errors.Wrap(err, "failed to count songs")
	}
	return n, nil
}

func toTracks(rows []songRow) []track.Track {
	tracks := make([]track.Track, len(rows))
	for i, row := range rows {
		tracks[i] = row.toTrack()
	}
	return tracks
}
