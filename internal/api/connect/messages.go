package connect

import (
	"time"

	"github.com/osa030/19wave/internal/app/notification"
	"github.com/osa030/19wave/internal/app/session"
	"github.com/osa030/19wave/internal/app/trendcache"
	"github.com/osa030/19wave/internal/domain/track"
)

// Track is the wire form of a track.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Genre      string `json:"genre,omitempty"`
	PlayCount  int64  `json:"play_count"`
	AudioURL   string `json:"audio_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at,omitempty"` // RFC 3339
}

// Empty is the request of methods without parameters.
type Empty struct{}

type LoadQueueRequest struct {
	Tracks []Track `json:"tracks"`
}

type PlayRequest struct {
	TrackID string `json:"track_id"`
}

type PlayFromListRequest struct {
	Tracks  []Track `json:"tracks"`
	TrackID string  `json:"track_id"`
}

// StatusResponse reports the playback state after an operation.
type StatusResponse struct {
	State       string `json:"state"`
	Index       int    `json:"index"`
	Track       *Track `json:"track,omitempty"`
	QueueLen    int    `json:"queue_len"`
	Reason      string `json:"reason,omitempty"`
	Subscribers int    `json:"subscribers"`
}

// Notification is a streamed event.
type Notification struct {
	SequenceNo uint64 `json:"sequence_no"`
	Kind       string `json:"kind"`
	Event      string `json:"event"`
	State      string `json:"state,omitempty"`
	Index      int    `json:"index"`
	Track      *Track `json:"track,omitempty"`
	Period     string `json:"period,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type GetRankingRequest struct {
	Period string `json:"period"`
}

type RankingResponse struct {
	Period    string  `json:"period"`
	Tracks    []Track `json:"tracks"`
	FetchedAt string  `json:"fetched_at"`
	Stale     bool    `json:"stale"`
	Warning   string  `json:"warning,omitempty"`
}

type RankingStateResponse struct {
	Period     string `json:"period"`
	State      string `json:"state"`
	TrackCount int    `json:"track_count"`
	FetchedAt  string `json:"fetched_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ListContextTracksRequest struct {
	Key string `json:"key"`
}

type ContextTracksResponse struct {
	Key             string  `json:"key"`
	Tracks          []Track `json:"tracks"`
	TotalDurationMs int64   `json:"total_duration_ms"`
	FetchedAt       string  `json:"fetched_at"`
	Stale           bool    `json:"stale"`
	Warning         string  `json:"warning,omitempty"`
}

type InvalidateRankingRequest struct {
	Period string `json:"period"`
}

type InvalidateRankingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StatsResponse struct {
	Hits        int64                  `json:"hits"`
	Misses      int64                  `json:"misses"`
	Fetches     int64                  `json:"fetches"`
	Failures    int64                  `json:"failures"`
	Subscribers int                    `json:"subscribers"`
	QueueLen    int                    `json:"queue_len"`
	Rankings    []RankingStateResponse `json:"rankings"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toWireTrack(t track.Track) Track {
	return Track{
		ID:         t.ID,
		Title:      t.Title,
		Author:     t.Author,
		Genre:      t.Genre,
		PlayCount:  t.PlayCount,
		AudioURL:   t.AudioURL,
		ImageURL:   t.ImageURL,
		DurationMs: t.Duration.Milliseconds(),
		CreatedAt:  formatTime(t.CreatedAt),
	}
}

func toWireTracks(tracks []track.Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = toWireTrack(t)
	}
	return out
}

func toWireTrackPtr(t *track.Track) *Track {
	if t == nil {
		return nil
	}
	w := toWireTrack(*t)
	return &w
}

func fromWireTracks(tracks []Track) []track.Track {
	out := make([]track.Track, len(tracks))
	for i, w := range tracks {
		t := track.Track{
			ID:        w.ID,
			Title:     w.Title,
			Author:    w.Author,
			Genre:     w.Genre,
			PlayCount: w.PlayCount,
			AudioURL:  w.AudioURL,
			ImageURL:  w.ImageURL,
			Duration:  time.Duration(w.DurationMs) * time.Millisecond,
		}
		if created, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			t.CreatedAt = created
		}
		out[i] = t
	}
	return out
}

func toStatusResponse(st session.Status) *StatusResponse {
	return &StatusResponse{
		State:       st.Playback.State.String(),
		Index:       st.Playback.Index,
		Track:       toWireTrackPtr(st.Playback.Track),
		QueueLen:    st.Playback.QueueLen,
		Reason:      st.Playback.Reason,
		Subscribers: st.Subscribers,
	}
}

func toWireNotification(n *notification.Notification) *Notification {
	return &Notification{
		SequenceNo: n.SequenceNo,
		Kind:       string(n.Kind),
		Event:      n.Event,
		State:      n.State,
		Index:      n.Index,
		Track:      toWireTrackPtr(n.Track),
		Period:     n.Period,
		Reason:     n.Reason,
	}
}

func toRankingState(e trendcache.Entry) RankingStateResponse {
	resp := RankingStateResponse{
		Period:     e.Period.String(),
		State:      e.State.String(),
		TrackCount: len(e.Tracks),
		FetchedAt:  formatTime(e.FetchedAt),
	}
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	return resp
}
