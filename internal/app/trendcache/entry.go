package trendcache

import (
	"time"

	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
)

// EntryState describes what a screen can render for a period right now.
type EntryState int

const (
	EntryAbsent  EntryState = iota // Never fetched
	EntryLoading                   // Fetch in flight
	EntryFresh                     // Data younger than the threshold
	EntryStale                     // Data present but due for refresh
	EntryFailed                    // No data and the last fetch failed
)

// String returns the string representation of the entry state.
func (s EntryState) String() string {
	switch s {
	case EntryAbsent:
		return "absent"
	case EntryLoading:
		return "loading"
	case EntryFresh:
		return "fresh"
	case EntryStale:
		return "stale"
	case EntryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a copy of a cache entry.
type Entry struct {
	Period    trend.Period
	State     EntryState
	Tracks    []track.Track
	FetchedAt time.Time
	Err       error // Last fetch error, nil after a successful fetch
}
