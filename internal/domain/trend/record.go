package trend

import (
	"time"

	"github.com/osa030/19wave/internal/domain/track"
)

// Record is a fetched ranking together with the time it was fetched.
type Record struct {
	Period    Period        `json:"period"`
	Tracks    []track.Track `json:"tracks"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Age returns how long ago the record was fetched.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}
