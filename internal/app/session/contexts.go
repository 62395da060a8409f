package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/19wave/internal/app/trendcache"
	"github.com/osa030/19wave/internal/domain/playlist"
	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

// ErrInvalidContext is returned for an empty context key.
var ErrInvalidContext = errors.New("context key is required")

// ContextSource fetches the tracks of a browsing context.
type ContextSource interface {
	FetchTracksByContext(ctx context.Context, key string) ([]track.Track, error)
}

// ContextStore persists context lists across restarts.
type ContextStore interface {
	LoadContext(key string) (trend.Record, bool)
	SaveContext(key string, rec trend.Record) error
}

// ContextList is a context track list handed to callers.
type ContextList struct {
	Playlist  playlist.Playlist
	FetchedAt time.Time
	Stale     bool
	Warning   string
}

type contextEntry struct {
	tracks    []track.Track
	fetchedAt time.Time
}

// contextCache caches context lists per key with the ranking staleness rule.
type contextCache struct {
	mu      sync.Mutex
	source  ContextSource
	store   ContextStore
	config  Config
	entries map[string]*contextEntry
	group   singleflight.Group
}

func newContextCache(source ContextSource, store ContextStore, config Config) *contextCache {
	return &contextCache{
		source:  source,
		store:   store,
		config:  config,
		entries: make(map[string]*contextEntry),
	}
}

// normalizeKey folds a context key to its cache identity.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (c *contextCache) get(ctx context.Context, key string) (ContextList, error) {
	key = normalizeKey(key)
	if key == "" {
		return ContextList{}, ErrInvalidContext
	}

	c.mu.Lock()
	if e := c.entryLocked(key); c.freshLocked(e) {
		l := listOf(key, e)
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.fallback(key, res.Err)
		}
		return res.Val.(ContextList), nil
	case <-ctx.Done():
		return ContextList{}, ctx.Err()
	}
}

// fetch runs one shared fetch for key, detached from any caller.
func (c *contextCache) fetch(key string) (ContextList, error) {
	c.mu.Lock()
	if e := c.entryLocked(key); c.freshLocked(e) {
		l := listOf(key, e)
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if c.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
	}
	defer cancel()

	tracks, err := c.source.FetchTracksByContext(ctx, key)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Wrapf(trendcache.ErrTimeout, "after %v", c.config.FetchTimeout)
		}
		zlog.Warn().Msgf("session: context fetch failed: key=%s err=%v", key, err)
		return ContextList{}, errors.Mark(errors.Wrapf(err, "fetching context %q", key), trendcache.ErrFetchFailed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &contextEntry{tracks: track.Clone(tracks), fetchedAt: c.config.Now()}
	c.entries[key] = e

	if c.store != nil {
		rec := trend.Record{Tracks: e.tracks, FetchedAt: e.fetchedAt}
		if err := c.store.SaveContext(key, rec); err != nil {
			zlog.Warn().Msgf("session: failed to persist context %s: %v", key, err)
		}
	}
	return listOf(key, e), nil
}

// fallback serves the previous list of key, marked stale, when a refresh failed.
func (c *contextCache) fallback(key string, err error) (ContextList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if e == nil || c.config.OnFetchError == trendcache.FailOnError {
		return ContextList{}, err
	}
	l := listOf(key, e)
	l.Stale = true
	l.Warning = fmt.Sprintf("showing %s from %s: refresh failed", key, e.fetchedAt.Format(time.RFC3339))
	return l, nil
}

// entryLocked returns the entry for key, restoring it from the store on
// first access. Returns nil when nothing was ever fetched.
// Must be called with lock held.
func (c *contextCache) entryLocked(key string) *contextEntry {
	if e, ok := c.entries[key]; ok {
		return e
	}
	if c.store == nil {
		return nil
	}
	rec, ok := c.store.LoadContext(key)
	if !ok {
		return nil
	}
	e := &contextEntry{tracks: rec.Tracks, fetchedAt: rec.FetchedAt}
	c.entries[key] = e
	return e
}

// Must be called with lock held.
func (c *contextCache) freshLocked(e *contextEntry) bool {
	return e != nil && !trendcache.IsStale(e.fetchedAt, c.config.Now(), c.config.StaleAfter)
}

func listOf(key string, e *contextEntry) ContextList {
	return ContextList{
		Playlist: playlist.Playlist{
			ContextKey: key,
			Name:       key,
			Tracks:     track.Clone(e.tracks),
		},
		FetchedAt: e.fetchedAt,
	}
}
