//go:build mpv

package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/wildeyedskies/go-mpv/mpv"

	"github.com/osa030/19wave/internal/domain/track"
)

// MPV plays tracks through libmpv.
type MPV struct {
	mu sync.Mutex
	m  *mpv.Mpv

	current string // ID of the loaded track

	// In-flight load
	pending     string
	loaded      chan error
	fileStarted bool

	finished chan string
	done     chan struct{}
	wg       sync.WaitGroup
}

func newMPV() (Player, error) {
	return NewMPV()
}

// NewMPV creates an audio-only libmpv instance.
func NewMPV() (*MPV, error) {
	m := mpv.Create()
	m.SetOptionString("audio-display", "no")
	m.SetOptionString("video", "no")

	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to initialize mpv")
	}

	p := &MPV{
		m:        m,
		finished: make(chan string, 16),
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.eventLoop()
	return p, nil
}

// Prepare loads the track paused and waits until mpv reports it loaded.
func (p *MPV) Prepare(ctx context.Context, t track.Track) error {
	if err := validateSource(t); err != nil {
		return err
	}

	loaded := make(chan error, 1)
	p.mu.Lock()
	p.current = ""
	p.pending = t.ID
	p.loaded = loaded
	p.fileStarted = false
	if err := p.m.SetProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		p.mu.Unlock()
		return errors.Wrap(err, "failed to pause before load")
	}
	if err := p.m.Command([]string{"loadfile", t.AudioURL}); err != nil {
		p.loaded = nil
		p.mu.Unlock()
		return errors.Wrapf(err, "failed to load %s", t.ID)
	}
	p.mu.Unlock()

	select {
	case err := <-loaded:
		return err
	case <-ctx.Done():
		p.mu.Lock()
		if p.loaded == loaded {
			p.loaded = nil
			p.m.Command([]string{"stop"})
		}
		p.mu.Unlock()
		return ctx.Err()
	}
}

// Start unpauses the prepared track.
func (p *MPV) Start(t track.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != t.ID {
		return errors.Newf("track %s is not loaded", t.ID)
	}
	return p.m.SetProperty("pause", mpv.FORMAT_FLAG, false)
}

func (p *MPV) Pause() error {
	return p.m.SetProperty("pause", mpv.FORMAT_FLAG, true)
}

func (p *MPV) Resume() error {
	return p.m.SetProperty("pause", mpv.FORMAT_FLAG, false)
}

// Stop unloads the current track without reporting it finished.
func (p *MPV) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
	p.loaded = nil
	return p.m.Command([]string{"stop"})
}

func (p *MPV) Finished() <-chan string {
	return p.finished
}

// Close stops the event loop and destroys the mpv instance.
func (p *MPV) Close() error {
	close(p.done)
	p.wg.Wait()
	p.m.Command([]string{"quit"})
	p.m.TerminateDestroy()
	return nil
}

func (p *MPV) eventLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		default:
		}

		e := p.m.WaitEvent(1)
		if e == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		p.handleEvent(e)
	}
}

func (p *MPV) handleEvent(e *mpv.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Event_Id {
	case mpv.EVENT_START_FILE:
		if p.loaded != nil {
			p.fileStarted = true
		}

	case mpv.EVENT_FILE_LOADED:
		if p.loaded != nil {
			p.current = p.pending
			p.loaded <- nil
			p.loaded = nil
		}

	case mpv.EVENT_END_FILE:
		if p.loaded != nil {
			// The previous file ends before the pending one starts
			if !p.fileStarted {
				return
			}
			p.loaded <- errors.Newf("mpv could not open track %s", p.pending)
			p.loaded = nil
			return
		}
		if p.current == "" {
			return
		}
		id := p.current
		p.current = ""
		select {
		case p.finished <- id:
		default:
			zlog.Warn().Msgf("mpv: finished channel full, dropping track_id=%s", id)
		}
	}
}
