// Package audio provides the audio backends driven by the playback controller.
package audio

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19wave/internal/domain/track"
)

const (
	BackendSimulated = "simulated"
	BackendMPV       = "mpv"
)

// ErrNoAudio is returned when a track has no usable audio source.
var ErrNoAudio = errors.New("track has no audio source")

// Player is an audio backend with a lifetime.
type Player interface {
	Prepare(ctx context.Context, t track.Track) error
	Start(t track.Track) error
	Pause() error
	Resume() error
	Stop() error
	Finished() <-chan string
	Close() error
}

// Config holds audio backend configuration.
type Config struct {
	Backend      string
	PrepareDelay time.Duration // Simulated load time
}

// New creates the configured audio backend.
func New(config Config) (Player, error) {
	switch config.Backend {
	case "", BackendSimulated:
		return NewSimulated(SimulatedConfig{PrepareDelay: config.PrepareDelay}), nil
	case BackendMPV:
		return newMPV()
	default:
		return nil, errors.Newf("unsupported audio backend: %s", config.Backend)
	}
}

// validateSource checks that t carries an audio URL a backend can open.
func validateSource(t track.Track) error {
	if !t.HasAudio() {
		return errors.Wrapf(ErrNoAudio, "track %s", t.ID)
	}
	u, err := url.Parse(t.AudioURL)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "track %s", t.ID), ErrNoAudio)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return errors.Wrapf(ErrNoAudio, "track %s: unsupported scheme %q", t.ID, u.Scheme)
	}
}
