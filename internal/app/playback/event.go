package playback

import "github.com/osa030/19wave/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventQueueLoaded  EventType = iota // A new queue replaced the previous one
	EventStateChanged                  // State or cursor changed
	EventTrackStarted                  // Track became playing
	EventTrackEnded                    // Backend reported the end of a track
	EventLoadFailed                    // Track could not be prepared or started
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQueueLoaded:
		return "queue_loaded"
	case EventStateChanged:
		return "state_changed"
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	Track  *track.Track // Track at cursor (nil when none)
	Index  int          // Cursor, -1 when none
	State  State
	Reason string // Failure reason for EventLoadFailed
}
