package audio

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/domain/track"
)

const defaultTrackLength = 3 * time.Minute

// SimulatedConfig holds Simulated configuration.
type SimulatedConfig struct {
	PrepareDelay  time.Duration
	DefaultLength time.Duration // Used for tracks of unknown duration
}

// Simulated plays nothing. It validates audio sources, takes PrepareDelay to
// load a track and reports the track finished once its duration of
// unpaused wall-clock time has elapsed.
type Simulated struct {
	mu     sync.Mutex
	config SimulatedConfig

	current   string
	remaining time.Duration
	startedAt time.Time
	timer     *time.Timer
	paused    bool
	gen       uint64

	finished chan string
}

// NewSimulated creates a new simulated backend.
func NewSimulated(config SimulatedConfig) *Simulated {
	if config.DefaultLength <= 0 {
		config.DefaultLength = defaultTrackLength
	}
	return &Simulated{
		config:   config,
		finished: make(chan string, 16),
	}
}

// Prepare validates the track's audio source and waits for the prepare delay.
func (s *Simulated) Prepare(ctx context.Context, t track.Track) error {
	if err := validateSource(t); err != nil {
		return err
	}
	if s.config.PrepareDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.config.PrepareDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start starts the playback clock of t.
func (s *Simulated) Start(t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.current = t.ID
	s.remaining = t.Duration
	if s.remaining <= 0 {
		s.remaining = s.config.DefaultLength
	}
	s.paused = false
	s.runLocked()

	zlog.Debug().Msgf("simulated: started track_id=%s length=%v", t.ID, s.remaining)
	return nil
}

// Pause freezes the playback clock.
func (s *Simulated) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" || s.paused {
		return nil
	}
	s.timer.Stop()
	s.remaining -= time.Since(s.startedAt)
	s.paused = true
	return nil
}

// Resume restarts the playback clock.
func (s *Simulated) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" || !s.paused {
		return nil
	}
	s.paused = false
	s.runLocked()
	return nil
}

// Stop discards the current track.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Finished delivers the IDs of tracks that played to their end.
func (s *Simulated) Finished() <-chan string {
	return s.finished
}

// Close stops the clock.
func (s *Simulated) Close() error {
	return s.Stop()
}

// Must be called with lock held.
func (s *Simulated) runLocked() {
	s.gen++
	gen, id := s.gen, s.current
	s.startedAt = time.Now()
	s.timer = time.AfterFunc(s.remaining, func() {
		s.finish(gen, id)
	})
}

// Must be called with lock held.
func (s *Simulated) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.current = ""
	s.paused = false
}

func (s *Simulated) finish(gen uint64, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.current = ""
	s.timer = nil

	select {
	case s.finished <- id:
	default:
		zlog.Warn().Msgf("simulated: finished channel full, dropping track_id=%s", id)
	}
}
