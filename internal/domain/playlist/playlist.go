// Package playlist provides the context track list entity.
package playlist

import (
	"time"

	"github.com/osa030/19wave/internal/domain/track"
)

// Playlist is an ordered list of tracks fetched for a browsing context,
// e.g. the songs of one genre.
type Playlist struct {
	ContextKey string        // Context key the list was fetched for (e.g. genre name)
	Name       string        // Display name
	Tracks     []track.Track // Tracks in display order
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	return track.IDs(p.Tracks)
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}
