// Package session provides the session manager, the process-wide owner of
// playback, rankings and context lists.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/app/filter"
	"github.com/osa030/19wave/internal/app/notification"
	"github.com/osa030/19wave/internal/app/playback"
	"github.com/osa030/19wave/internal/app/trendcache"
	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

const (
	playQueueSize = 64
	recordTimeout = 5 * time.Second
)

// PlayRecorder records that a track started playing.
type PlayRecorder interface {
	IncrementPlayCount(ctx context.Context, id string) error
}

// Deps holds the components owned by the session.
type Deps struct {
	Playback *playback.Controller
	Rankings *trendcache.Cache
	Contexts ContextSource
	Filters  *filter.Chain
	Store    ContextStore // may be nil
	Recorder PlayRecorder // may be nil
}

// Config holds session configuration.
type Config struct {
	StaleAfter         time.Duration               // Context list staleness threshold
	FetchTimeout       time.Duration               // Max time a context fetch may take
	NotificationBuffer int                         // Per-subscriber notification queue size
	OnFetchError       trendcache.FetchErrorPolicy // Context lists, defaults to serve stale
	Now                func() time.Time            // Clock, defaults to time.Now
}

// Status is a snapshot of the session.
type Status struct {
	Playback    playback.Status
	Subscribers int
}

// Stats reports cache activity for administrators.
type Stats struct {
	Cache       trendcache.Metrics
	Entries     []trendcache.Entry
	Subscribers int
	QueueLen    int
}

// Manager manages the session.
type Manager struct {
	// Components
	playback     *playback.Controller
	rankings     *trendcache.Cache
	contexts     *contextCache
	filterChain  *filter.Chain
	notification *notification.Manager
	recorder     PlayRecorder
	plays        chan track.Track // Pending play records

	// Serializes broadcasts with subscriber registration so a new subscriber
	// gets its initial state before any event.
	forwardMu sync.Mutex

	unsubscribePlayback func()
	unsubscribeTrends   func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new session manager and starts forwarding events.
func NewManager(deps Deps, config Config) (*Manager, error) {
	if deps.Playback == nil || deps.Rankings == nil || deps.Contexts == nil {
		return nil, errors.New("playback, rankings and contexts are required")
	}
	if deps.Filters == nil {
		deps.Filters = filter.NewChain()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		playback:     deps.Playback,
		rankings:     deps.Rankings,
		contexts:     newContextCache(deps.Contexts, deps.Store, config),
		filterChain:  deps.Filters,
		notification: notification.NewManager(config.NotificationBuffer),
		recorder:     deps.Recorder,
		ctx:          ctx,
		cancel:       cancel,
	}

	playbackEvents, unsubscribePlayback := m.playback.Subscribe()
	trendEvents, unsubscribeTrends := m.rankings.Subscribe()
	m.unsubscribePlayback = unsubscribePlayback
	m.unsubscribeTrends = unsubscribeTrends

	m.wg.Add(2)
	go m.playbackLoop(playbackEvents)
	go m.trendLoop(trendEvents)

	if m.recorder != nil {
		m.plays = make(chan track.Track, playQueueSize)
		m.wg.Add(1)
		go m.recordLoop()
	}

	return m, nil
}

// Ranking returns the filtered ranking of period.
func (m *Manager) Ranking(ctx context.Context, period trend.Period) (trendcache.Ranking, error) {
	r, err := m.rankings.GetRanking(ctx, period)
	if err != nil {
		return trendcache.Ranking{}, err
	}
	r.Tracks = m.filterChain.Apply(ctx, r.Tracks, filter.ListRanking)
	return r, nil
}

// RankingState returns the cache entry of period without fetching.
func (m *Manager) RankingState(period trend.Period) (trendcache.Entry, error) {
	if !period.Valid() {
		return trendcache.Entry{}, errors.Wrapf(trend.ErrInvalidPeriod, "%q", string(period))
	}
	return m.rankings.Snapshot(period), nil
}

// ContextTracks returns the filtered track list of the context key.
func (m *Manager) ContextTracks(ctx context.Context, key string) (ContextList, error) {
	l, err := m.contexts.get(ctx, key)
	if err != nil {
		return ContextList{}, err
	}
	l.Playlist.Tracks = m.filterChain.Apply(ctx, l.Playlist.Tracks, filter.ListContext)
	return l, nil
}

// InvalidateRanking marks the ranking of period stale.
func (m *Manager) InvalidateRanking(period trend.Period) error {
	return m.rankings.Invalidate(period)
}

// PlayFromList loads tracks as the queue and plays the track with trackID.
// The queue is left untouched when trackID is not in tracks.
func (m *Manager) PlayFromList(ctx context.Context, tracks []track.Track, trackID string) error {
	idx := track.IndexOf(tracks, trackID)
	if idx < 0 {
		return errors.Wrapf(playback.ErrTrackNotFound, "track %s", trackID)
	}
	if err := m.playback.LoadQueue(tracks); err != nil {
		return err
	}
	return m.playback.Play(ctx, tracks[idx])
}

// LoadQueue replaces the playback queue.
func (m *Manager) LoadQueue(tracks []track.Track) error {
	return m.playback.LoadQueue(tracks)
}

// Play plays the queued track with trackID.
func (m *Manager) Play(ctx context.Context, trackID string) error {
	return m.playback.Play(ctx, track.Track{ID: trackID})
}

// Pause pauses playback.
func (m *Manager) Pause() error {
	return m.playback.Pause()
}

// Resume resumes playback.
func (m *Manager) Resume() error {
	return m.playback.Resume()
}

// Next plays the next queued track.
func (m *Manager) Next(ctx context.Context) error {
	return m.playback.Next(ctx)
}

// Previous plays the previous queued track.
func (m *Manager) Previous(ctx context.Context) error {
	return m.playback.Previous(ctx)
}

// Queue returns the loaded queue.
func (m *Manager) Queue() []track.Track {
	return m.playback.Queue()
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	return Status{
		Playback:    m.playback.Status(),
		Subscribers: m.notification.SubscriberCount(),
	}
}

// Stats returns cache activity.
func (m *Manager) Stats() Stats {
	return Stats{
		Cache:       m.rankings.Metrics(),
		Entries:     m.rankings.Snapshots(),
		Subscribers: m.notification.SubscriberCount(),
		QueueLen:    m.playback.Status().QueueLen,
	}
}

// Subscribe registers stream for notifications. The current playback state
// is sent first. Returns the subscription ID.
func (m *Manager) Subscribe(stream notification.Stream) (string, error) {
	m.forwardMu.Lock()
	defer m.forwardMu.Unlock()

	st := m.playback.Status()
	initial := &notification.Notification{
		SequenceNo: m.notification.NextSequenceNo(),
		Kind:       notification.KindPlayback,
		Event:      "initial_state",
		State:      st.State.String(),
		Index:      st.Index,
		Track:      st.Track,
		Reason:     st.Reason,
	}
	if err := stream.Send(initial); err != nil {
		return "", errors.Wrap(err, "failed to send initial state")
	}
	return m.notification.Subscribe(stream), nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.notification.Unsubscribe(subscriptionID)
}

// playbackLoop forwards playback events.
func (m *Manager) playbackLoop(events <-chan playback.Event) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("playback event: type=%s state=%s index=%d", event.Type, event.State, event.Index)

	m.broadcast(&notification.Notification{
		Kind:   notification.KindPlayback,
		Event:  event.Type.String(),
		State:  event.State.String(),
		Index:  event.Index,
		Track:  event.Track,
		Reason: event.Reason,
	})

	if event.Type == playback.EventTrackStarted && event.Track != nil {
		m.recordPlay(event.Track)
	}
}

// recordPlay queues a play record without holding up event forwarding.
func (m *Manager) recordPlay(t *track.Track) {
	if m.recorder == nil {
		return
	}
	select {
	case m.plays <- *t:
	default:
		zlog.Warn().Msgf("play not recorded, queue full: track_id=%s", t.ID)
	}
}

// recordLoop writes queued play records to the recorder.
func (m *Manager) recordLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case t := <-m.plays:
			ctx, cancel := context.WithTimeout(m.ctx, recordTimeout)
			err := m.recorder.IncrementPlayCount(ctx, t.ID)
			cancel()
			if err != nil {
				zlog.Debug().Msgf("play not recorded: track_id=%s error=%v", t.ID, err)
				continue
			}
			zlog.Info().Msgf("play recorded: track_id=%s title=%s", t.ID, t.Title)
		}
	}
}

// trendLoop forwards ranking cache events.
func (m *Manager) trendLoop(events <-chan trendcache.Event) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.broadcast(&notification.Notification{
				Kind:   notification.KindTrend,
				Event:  event.State.String(),
				Index:  -1,
				Period: event.Period.String(),
			})
		}
	}
}

func (m *Manager) broadcast(n *notification.Notification) {
	m.forwardMu.Lock()
	defer m.forwardMu.Unlock()
	m.notification.Broadcast(n)
}

// Done is closed once the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

// Close stops event forwarding and playback.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
	m.unsubscribePlayback()
	m.unsubscribeTrends()
	m.playback.Close()
	m.notification.Close()
}
