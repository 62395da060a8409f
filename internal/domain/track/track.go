// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"math"
	"time"
)

// Track represents a playable song.
// Identity is by ID only; other fields may be stale copies.
type Track struct {
	ID        string        // Source-specific unique ID
	Title     string        // Track title
	Author    string        // Artist display name
	Genre     string        // Genre label (may be empty)
	PlayCount int64         // Play count used for ranking
	AudioURL  string        // Playable audio source
	ImageURL  string        // Cover image
	Duration  time.Duration // Track duration (0 if unknown)
	CreatedAt time.Time     // Time the track was published
}

// HasAudio reports whether the track can be handed to an audio backend.
func (t *Track) HasAudio() bool {
	return t.AudioURL != ""
}

// IDs returns the track-id sequence of tracks.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// SameSequence reports whether a and b have identical track-id sequences.
func SameSequence(a, b []Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// IndexOf returns the position of the track with the given ID, or -1.
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy of tracks that does not share the backing array.
func Clone(tracks []Track) []Track {
	if tracks == nil {
		return nil
	}
	out := make([]Track, len(tracks))
	copy(out, tracks)
	return out
}

// FormatTime formats d as minutes and seconds ("3:07").
// Seconds are rounded, so 59.6s is shown as "1:00".
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(math.Round(d.Seconds()))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
