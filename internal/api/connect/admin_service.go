package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/app/session"
	"github.com/osa030/19wave/internal/domain/trend"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	session *session.Manager
}

// NewAdminService creates a new AdminService.
func NewAdminService(session *session.Manager) *AdminService {
	return &AdminService{
		session: session,
	}
}

// InvalidateRanking marks the ranking of a period stale.
func (s *AdminService) InvalidateRanking(
	ctx context.Context,
	req *connect.Request[InvalidateRankingRequest],
) (*connect.Response[InvalidateRankingResponse], error) {
	period, err := trend.ParsePeriod(req.Msg.Period)
	if err != nil {
		return nil, toConnectError(err)
	}

	if err := s.session.InvalidateRanking(period); err != nil {
		return connect.NewResponse(&InvalidateRankingResponse{
			Success: false,
			Message: err.Error(),
		}), nil
	}

	zlog.Info().Msgf("admin: invalidated ranking period=%s", period)
	return connect.NewResponse(&InvalidateRankingResponse{
		Success: true,
		Message: "Ranking invalidated",
	}), nil
}

// GetStats returns cache activity.
func (s *AdminService) GetStats(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatsResponse], error) {
	stats := s.session.Stats()

	rankings := make([]RankingStateResponse, len(stats.Entries))
	for i, e := range stats.Entries {
		rankings[i] = toRankingState(e)
	}

	return connect.NewResponse(&StatsResponse{
		Hits:        stats.Cache.Hits,
		Misses:      stats.Cache.Misses,
		Fetches:     stats.Cache.Fetches,
		Failures:    stats.Cache.Failures,
		Subscribers: stats.Subscribers,
		QueueLen:    stats.QueueLen,
		Rankings:    rankings,
	}), nil
}
