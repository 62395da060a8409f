package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
)

// Errors
var (
	ErrTrackNotFound      = errors.New("track not found in queue")
	ErrResourceLoadFailed = errors.New("audio resource load failed")
	ErrTimeout            = errors.New("timed out")
	ErrSuperseded         = errors.New("superseded by a newer request")
	ErrClosed             = errors.New("controller closed")
)

const defaultEventBuffer = 16

// Config holds controller configuration.
type Config struct {
	LoadTimeout time.Duration // Max time a Prepare may take, 0 disables the limit
	EventBuffer int           // Per-subscriber event buffer
}

// Status is a snapshot of the controller state.
type Status struct {
	State    State
	Index    int          // Cursor, -1 when nothing is loaded
	Track    *track.Track // Track at cursor
	QueueLen int
	Reason   string // Failure reason when State is StateError
}

// Controller owns the playback queue and transport state.
// All operations are serialized; a load started by Play, Next or Previous is
// identified by a request token and its completion is discarded once a newer
// request has been issued.
type Controller struct {
	mu sync.RWMutex

	backend Backend
	config  Config

	// Queue
	queue  []track.Track
	cursor int

	// Transport
	state  State
	reason string
	loaded bool // backend holds a prepared or started resource

	// In-flight load
	token      uint64
	loadCancel context.CancelFunc

	// Subscribers
	subs      map[int]chan Event
	nextSubID int

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a new playback controller driving backend.
func NewController(backend Backend, config Config) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend: backend,
		config:  config,
		queue:   make([]track.Track, 0),
		cursor:  -1,
		state:   StateIdle,
		subs:    make(map[int]chan Event),
		ctx:     ctx,
		cancel:  cancel,
	}

	c.wg.Add(1)
	go c.watchFinished()

	return c
}

// LoadQueue replaces the queue with tracks and clears the cursor.
// Loading the track-id sequence that is already loaded changes nothing, so a
// screen can re-issue its list without restarting playback.
func (c *Controller) LoadQueue(tracks []track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if track.SameSequence(c.queue, tracks) {
		zlog.Debug().Msgf("playback: queue unchanged, keeping cursor: size=%d cursor=%d", len(tracks), c.cursor)
		if c.state == StateError {
			c.state = StateIdle
			c.reason = ""
			c.sendEventLocked(c.eventLocked(EventStateChanged))
		}
		return nil
	}

	c.supersedeLocked()
	c.stopBackendLocked()

	c.queue = track.Clone(tracks)
	if c.queue == nil {
		c.queue = make([]track.Track, 0)
	}
	c.cursor = -1
	c.state = StateIdle
	c.reason = ""

	zlog.Debug().Msgf("playback: queue loaded: size=%d", len(c.queue))
	c.sendEventLocked(c.eventLocked(EventQueueLoaded))

	return nil
}

// Play moves the cursor to t and starts it. t must be in the loaded queue.
// Play waits until the track is playing, the load fails or ctx is done;
// giving up on ctx does not cancel the load itself.
func (c *Controller) Play(ctx context.Context, t track.Track) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	idx := track.IndexOf(c.queue, t.ID)
	if idx < 0 {
		c.mu.Unlock()
		return errors.Wrapf(ErrTrackNotFound, "track %s", t.ID)
	}

	done := c.startLoadLocked(idx)
	c.mu.Unlock()

	return wait(ctx, done)
}

// Pause pauses the current playback. It is a no-op unless playing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return nil
	}

	if err := c.backend.Pause(); err != nil {
		return errors.Wrap(err, "failed to pause")
	}

	c.state = StatePaused
	c.sendEventLocked(c.eventLocked(EventStateChanged))
	return nil
}

// Resume resumes paused playback. It is a no-op unless paused.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return nil
	}

	if err := c.backend.Resume(); err != nil {
		return errors.Wrap(err, "failed to resume")
	}

	c.state = StatePlaying
	c.sendEventLocked(c.eventLocked(EventStateChanged))
	return nil
}

// Next plays the track after the cursor. At the last track playback stops,
// the state becomes idle and the cursor stays where it is.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.cursor < 0 {
		c.mu.Unlock()
		return nil
	}

	if c.cursor >= len(c.queue)-1 {
		c.endLocked()
		c.mu.Unlock()
		return nil
	}

	done := c.startLoadLocked(c.cursor + 1)
	c.mu.Unlock()

	return wait(ctx, done)
}

// Previous plays the track before the cursor. It is a no-op at the start.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.cursor <= 0 {
		c.mu.Unlock()
		return nil
	}

	done := c.startLoadLocked(c.cursor - 1)
	c.mu.Unlock()

	return wait(ctx, done)
}

// CurrentTrack returns the track at the cursor.
func (c *Controller) CurrentTrack() (*track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.currentLocked()
	return t, t != nil
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		State:    c.state,
		Index:    c.cursor,
		Track:    c.currentLocked(),
		QueueLen: len(c.queue),
		Reason:   c.reason,
	}
}

// GetState returns the current playback state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Queue returns a copy of the loaded queue.
func (c *Controller) Queue() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return track.Clone(c.queue)
}

// Subscribe registers a subscriber and returns its event channel together
// with a function that unregisters it. Events are dropped for subscribers
// whose buffer is full.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, c.config.EventBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

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

// Close stops playback, closes all subscriber channels and releases resources.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersedeLocked()
	c.stopBackendLocked()
	c.state = StateIdle
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// startLoadLocked moves the cursor to idx and starts loading that track.
// The returned channel receives the outcome exactly once.
// Must be called with lock held.
func (c *Controller) startLoadLocked(idx int) <-chan error {
	c.supersedeLocked()
	c.stopBackendLocked()

	token := c.token
	t := c.queue[idx]

	c.cursor = idx
	c.state = StateLoading
	c.reason = ""
	c.sendEventLocked(c.eventLocked(EventStateChanged))

	var loadCtx context.Context
	var cancel context.CancelFunc
	if c.config.LoadTimeout > 0 {
		loadCtx, cancel = context.WithTimeout(c.ctx, c.config.LoadTimeout)
	} else {
		loadCtx, cancel = context.WithCancel(c.ctx)
	}
	c.loadCancel = cancel

	zlog.Debug().Msgf("playback: loading track: token=%d index=%d id=%s title=%s", token, idx, t.ID, t.Title)

	done := make(chan error, 1)
	go c.load(loadCtx, cancel, token, t, done)
	return done
}

// load prepares and starts t, then applies the outcome if token is still current.
func (c *Controller) load(ctx context.Context, cancel context.CancelFunc, token uint64, t track.Track, done chan<- error) {
	defer cancel()

	err := c.backend.Prepare(ctx, t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		zlog.Debug().Msgf("playback: discarding stale load: token=%d current=%d id=%s", token, c.token, t.ID)
		done <- errors.Wrapf(ErrSuperseded, "track %s", t.ID)
		return
	}
	c.loadCancel = nil

	if err == nil {
		err = c.backend.Start(t)
	}
	if err != nil {
		done <- c.failLocked(ctx, t, err)
		return
	}

	c.loaded = true
	c.state = StatePlaying
	zlog.Info().Msgf("playback: now playing: id=%s title=%s author=%s", t.ID, t.Title, t.Author)
	c.sendEventLocked(c.eventLocked(EventTrackStarted))
	done <- nil
}

// failLocked moves the controller to StateError and returns the load error.
// Must be called with lock held.
func (c *Controller) failLocked(ctx context.Context, t track.Track, cause error) error {
	var err error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = errors.Wrapf(ErrTimeout, "loading track %s after %v", t.ID, c.config.LoadTimeout)
		c.reason = fmt.Sprintf("timed out loading %q", t.Title)
	} else {
		err = errors.Wrapf(cause, "loading track %s", t.ID)
		c.reason = fmt.Sprintf("could not load %q: %v", t.Title, cause)
	}
	err = errors.Mark(err, ErrResourceLoadFailed)

	// Release anything the backend may hold for the failed track
	c.loaded = true
	c.stopBackendLocked()

	c.state = StateError
	zlog.Warn().Msgf("playback: load failed: id=%s reason=%s", t.ID, c.reason)
	c.sendEventLocked(c.eventLocked(EventLoadFailed))

	return err
}

// endLocked stops playback at the current cursor.
// Must be called with lock held.
func (c *Controller) endLocked() {
	c.supersedeLocked()
	c.stopBackendLocked()
	c.state = StateIdle
	c.reason = ""
	c.sendEventLocked(c.eventLocked(EventStateChanged))
}

// supersedeLocked invalidates the in-flight load, if any.
// Must be called with lock held.
func (c *Controller) supersedeLocked() {
	c.token++
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
}

// stopBackendLocked stops the backend if it holds or is preparing a resource.
// Must be called with lock held.
func (c *Controller) stopBackendLocked() {
	if !c.loaded && c.state != StateLoading {
		return
	}
	if err := c.backend.Stop(); err != nil {
		zlog.Warn().Msgf("playback: failed to stop backend: %v", err)
	}
	c.loaded = false
}

// onTrackEnd advances after the backend reported the end of trackID.
func (c *Controller) onTrackEnd(trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.currentLocked()
	if c.closed || c.state != StatePlaying || cur == nil || cur.ID != trackID {
		return
	}

	c.loaded = false
	c.sendEventLocked(c.eventLocked(EventTrackEnded))

	if c.cursor >= len(c.queue)-1 {
		c.endLocked()
		return
	}

	// Outcome is reported through events; nobody waits on the channel
	_ = c.startLoadLocked(c.cursor + 1)
}

// watchFinished forwards backend end-of-track notifications.
func (c *Controller) watchFinished() {
	defer c.wg.Done()

	finished := c.backend.Finished()
	for {
		select {
		case <-c.ctx.Done():
			return
		case id, ok := <-finished:
			if !ok {
				return
			}
			c.onTrackEnd(id)
		}
	}
}

// currentLocked returns a copy of the track at the cursor.
// Must be called with lock held.
func (c *Controller) currentLocked() *track.Track {
	if c.cursor < 0 || c.cursor >= len(c.queue) {
		return nil
	}
	t := c.queue[c.cursor]
	return &t
}

// eventLocked builds an event describing the current state.
// Must be called with lock held.
func (c *Controller) eventLocked(typ EventType) Event {
	return Event{
		Type:   typ,
		Track:  c.currentLocked(),
		Index:  c.cursor,
		State:  c.state,
		Reason: c.reason,
	}
}

// sendEventLocked sends an event to every subscriber without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	for _, sub := range c.subs {
		select {
		case sub <- e:
		default:
			// Subscriber is not keeping up, drop event
		}
	}
}

// wait blocks until a load outcome arrives or ctx is done.
func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
