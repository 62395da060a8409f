package playback

import (
	"context"

	"github.com/osa030/19wave/internal/domain/track"
)

// Backend is the audio resource backend driven by the Controller.
type Backend interface {
	// Prepare loads the track's audio resource and returns once it can start.
	// It must honour ctx cancellation.
	Prepare(ctx context.Context, t track.Track) error
	// Start begins playback of a prepared track.
	Start(t track.Track) error
	Pause() error
	Resume() error
	// Stop stops playback and releases the loaded resource.
	Stop() error
	// Finished delivers the IDs of tracks that played to their end.
	// Sends on it must never block the backend.
	Finished() <-chan string
}
