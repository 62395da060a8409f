package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/osa030/19wave/internal/app/session"
	"github.com/osa030/19wave/internal/domain/trend"
)

// BrowseService implements the BrowseService RPC.
type BrowseService struct {
	session *session.Manager
}

// NewBrowseService creates a new BrowseService.
func NewBrowseService(session *session.Manager) *BrowseService {
	return &BrowseService{
		session: session,
	}
}

// GetRanking returns the ranking of a period, fetching it when needed.
func (s *BrowseService) GetRanking(
	ctx context.Context,
	req *connect.Request[GetRankingRequest],
) (*connect.Response[RankingResponse], error) {
	period, err := trend.ParsePeriod(req.Msg.Period)
	if err != nil {
		return nil, toConnectError(err)
	}

	r, err := s.session.Ranking(ctx, period)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RankingResponse{
		Period:    r.Period.String(),
		Tracks:    toWireTracks(r.Tracks),
		FetchedAt: formatTime(r.FetchedAt),
		Stale:     r.Stale,
		Warning:   r.Warning,
	}), nil
}

// GetRankingState returns the cache state of a period without fetching.
func (s *BrowseService) GetRankingState(
	ctx context.Context,
	req *connect.Request[GetRankingRequest],
) (*connect.Response[RankingStateResponse], error) {
	period, err := trend.ParsePeriod(req.Msg.Period)
	if err != nil {
		return nil, toConnectError(err)
	}

	entry, err := s.session.RankingState(period)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := toRankingState(entry)
	return connect.NewResponse(&resp), nil
}

// ListContextTracks returns the tracks of a context such as a genre.
func (s *BrowseService) ListContextTracks(
	ctx context.Context,
	req *connect.Request[ListContextTracksRequest],
) (*connect.Response[ContextTracksResponse], error) {
	l, err := s.session.ContextTracks(ctx, req.Msg.Key)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ContextTracksResponse{
		Key:             l.Playlist.ContextKey,
		Tracks:          toWireTracks(l.Playlist.Tracks),
		TotalDurationMs: l.Playlist.TotalDuration().Milliseconds(),
		FetchedAt:       formatTime(l.FetchedAt),
		Stale:           l.Stale,
		Warning:         l.Warning,
	}), nil
}
