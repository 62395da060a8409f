// Package trendcache caches ranked track lists per trend period.
//
// Entries are created on first request and refreshed on demand once they are
// older than the configured threshold. At most one fetch per period is in
// flight; callers that arrive during a fetch share its result.
package trendcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

// Errors
var (
	ErrFetchFailed = errors.New("ranking fetch failed")
	ErrTimeout     = errors.New("ranking fetch timed out")
)

// FetchErrorPolicy decides what a caller gets when a refresh fails.
type FetchErrorPolicy string

const (
	// ServeStale returns the previous data flagged as stale.
	ServeStale FetchErrorPolicy = "serve_stale"
	// FailOnError returns the fetch error.
	FailOnError FetchErrorPolicy = "fail"
)

// Source fetches a ranking from the backing service.
type Source interface {
	FetchRanking(ctx context.Context, period trend.Period) ([]track.Track, error)
}

// Store persists fetched rankings across restarts.
type Store interface {
	LoadRanking(period trend.Period) (trend.Record, bool)
	SaveRanking(period trend.Period, rec trend.Record) error
}

// Config holds cache configuration.
type Config struct {
	StaleAfter   time.Duration    // Age at which an entry is refreshed
	FetchTimeout time.Duration    // Upper bound for one fetch, 0 disables it
	OnFetchError FetchErrorPolicy // Defaults to ServeStale
	Now          func() time.Time // Clock, defaults to time.Now
}

// Ranking is the result handed to callers.
type Ranking struct {
	Period    trend.Period
	Tracks    []track.Track
	FetchedAt time.Time
	Stale     bool   // Data is older than the threshold (refresh failed)
	Warning   string // Human readable reason when Stale is set
}

// Event reports an entry state change.
type Event struct {
	Period trend.Period
	State  EntryState
}

// Metrics counts cache activity.
type Metrics struct {
	Hits     int64
	Misses   int64
	Fetches  int64
	Failures int64
}

type entry struct {
	tracks      []track.Track
	fetchedAt   time.Time
	hasData     bool
	loading     bool
	invalidated bool
	generation  uint64 // bumped by Invalidate
	lastErr     error
}

// Cache is the per-period ranking cache.
type Cache struct {
	mu      sync.Mutex
	source  Source
	store   Store
	config  Config
	entries map[trend.Period]*entry
	group   singleflight.Group

	subs      map[int]chan Event
	nextSubID int

	hits, misses, fetches, failures atomic.Int64
}

// NewCache creates a new cache. store may be nil.
func NewCache(source Source, store Store, config Config) *Cache {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.OnFetchError == "" {
		config.OnFetchError = ServeStale
	}
	return &Cache{
		source:  source,
		store:   store,
		config:  config,
		entries: make(map[trend.Period]*entry),
		subs:    make(map[int]chan Event),
	}
}

// IsStale reports whether data fetched at fetchedAt must be refreshed at now.
func IsStale(fetchedAt, now time.Time, threshold time.Duration) bool {
	return now.Sub(fetchedAt) >= threshold
}

// GetRanking returns the ranking for period, fetching it when absent or stale.
// Giving up on ctx does not cancel the fetch; its result still fills the entry.
func (c *Cache) GetRanking(ctx context.Context, period trend.Period) (Ranking, error) {
	if !period.Valid() {
		return Ranking{}, errors.Wrapf(trend.ErrInvalidPeriod, "%q", string(period))
	}

	c.mu.Lock()
	e := c.entryLocked(period)
	if c.freshLocked(e) {
		r := rankingOf(period, e)
		c.mu.Unlock()
		c.hits.Add(1)
		return r, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	ch := c.group.DoChan(string(period), func() (interface{}, error) {
		return c.fetch(period)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.fallback(period, res.Err)
		}
		return res.Val.(Ranking), nil
	case <-ctx.Done():
		return Ranking{}, ctx.Err()
	}
}

// Refresh starts a background fetch for period if its entry is not fresh.
func (c *Cache) Refresh(period trend.Period) {
	if !period.Valid() {
		return
	}
	c.mu.Lock()
	fresh := c.freshLocked(c.entryLocked(period))
	c.mu.Unlock()
	if fresh {
		return
	}
	c.group.DoChan(string(period), func() (interface{}, error) {
		return c.fetch(period)
	})
}

// Snapshot returns the current entry for period without fetching.
func (c *Cache) Snapshot(period trend.Period) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(period)
	return Entry{
		Period:    period,
		State:     c.stateLocked(e),
		Tracks:    track.Clone(e.tracks),
		FetchedAt: e.fetchedAt,
		Err:       e.lastErr,
	}
}

// Snapshots returns the entries of every period.
func (c *Cache) Snapshots() []Entry {
	periods := trend.Periods()
	out := make([]Entry, 0, len(periods))
	for _, p := range periods {
		out = append(out, c.Snapshot(p))
	}
	return out
}

// Invalidate marks the entry for period stale so the next request refetches.
func (c *Cache) Invalidate(period trend.Period) error {
	if !period.Valid() {
		return errors.Wrapf(trend.ErrInvalidPeriod, "%q", string(period))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(period)
	e.invalidated = true
	e.generation++
	zlog.Info().Msgf("trendcache: invalidated period=%s", period)
	c.notifyLocked(period, e)
	return nil
}

// Metrics returns the activity counters.
func (c *Cache) Metrics() Metrics {
	return Metrics{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Fetches:  c.fetches.Load(),
		Failures: c.failures.Load(),
	}
}

// Subscribe registers a subscriber for entry state changes.
func (c *Cache) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, 16)
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// fetch runs one shared fetch for period, detached from any caller.
func (c *Cache) fetch(period trend.Period) (Ranking, error) {
	c.mu.Lock()
	e := c.entryLocked(period)
	// A previous fetch may have completed between the caller's check and now
	if c.freshLocked(e) {
		r := rankingOf(period, e)
		c.mu.Unlock()
		return r, nil
	}
	e.loading = true
	generation := e.generation
	c.notifyLocked(period, e)
	c.mu.Unlock()

	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if c.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
	}
	defer cancel()

	c.fetches.Add(1)
	start := time.Now()
	tracks, err := c.source.FetchRanking(ctx, period)

	c.mu.Lock()
	defer c.mu.Unlock()

	e.loading = false
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Wrapf(ErrTimeout, "after %v", c.config.FetchTimeout)
		}
		err = errors.Mark(errors.Wrapf(err, "fetching %s ranking", period), ErrFetchFailed)
		e.lastErr = err
		c.failures.Add(1)
		zlog.Warn().Msgf("trendcache: fetch failed: period=%s err=%v", period, err)
		c.notifyLocked(period, e)
		return Ranking{}, err
	}

	e.tracks = track.Clone(tracks)
	e.fetchedAt = c.config.Now()
	e.hasData = true
	// An invalidation during the fetch still applies to its result
	if e.generation == generation {
		e.invalidated = false
	}
	e.lastErr = nil
	zlog.Debug().Msgf("trendcache: fetched period=%s tracks=%d took=%v", period, len(tracks), time.Since(start))

	if c.store != nil {
		rec := trend.Record{Period: period, Tracks: e.tracks, FetchedAt: e.fetchedAt}
		if err := c.store.SaveRanking(period, rec); err != nil {
			zlog.Warn().Msgf("trendcache: failed to persist period=%s: %v", period, err)
		}
	}

	c.notifyLocked(period, e)
	return rankingOf(period, e), nil
}

// fallback applies the fetch error policy.
func (c *Cache) fallback(period trend.Period, err error) (Ranking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(period)
	if c.config.OnFetchError != ServeStale || !e.hasData {
		return Ranking{}, err
	}

	r := rankingOf(period, e)
	r.Stale = true
	r.Warning = fmt.Sprintf("showing rankings from %s: refresh failed", e.fetchedAt.Format(time.RFC3339))
	return r, nil
}

// entryLocked returns the entry for period, restoring it from the store on
// first access. Must be called with lock held.
func (c *Cache) entryLocked(period trend.Period) *entry {
	if e, ok := c.entries[period]; ok {
		return e
	}

	e := &entry{}
	if c.store != nil {
		if rec, ok := c.store.LoadRanking(period); ok {
			e.tracks = rec.Tracks
			e.fetchedAt = rec.FetchedAt
			e.hasData = true
			zlog.Debug().Msgf("trendcache: restored period=%s fetched_at=%s", period, rec.FetchedAt.Format(time.RFC3339))
		}
	}
	c.entries[period] = e
	return e
}

// Must be called with lock held.
func (c *Cache) freshLocked(e *entry) bool {
	return e.hasData && !e.invalidated && !IsStale(e.fetchedAt, c.config.Now(), c.config.StaleAfter)
}

// Must be called with lock held.
func (c *Cache) stateLocked(e *entry) EntryState {
	switch {
	case e.loading:
		return EntryLoading
	case !e.hasData && e.lastErr != nil:
		return EntryFailed
	case !e.hasData:
		return EntryAbsent
	case c.freshLocked(e):
		return EntryFresh
	default:
		return EntryStale
	}
}

// Must be called with lock held.
func (c *Cache) notifyLocked(period trend.Period, e *entry) {
	ev := Event{Period: period, State: c.stateLocked(e)}
	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

func rankingOf(period trend.Period, e *entry) Ranking {
	return Ranking{
		Period:    period,
		Tracks:    track.Clone(e.tracks),
		FetchedAt: e.fetchedAt,
	}
}
