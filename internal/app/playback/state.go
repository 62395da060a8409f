// Package playback provides the process-wide playback coordinator.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing playing (queue empty, stopped or end reached)
	StateLoading              // Backend is preparing the current track
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateError                // Last load failed, see Status.Reason
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
