package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19wave/internal/app/notification"
	"github.com/osa030/19wave/internal/app/session"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager) *PlayerService {
	return &PlayerService{
		session: session,
	}
}

func (s *PlayerService) status() *connect.Response[StatusResponse] {
	return connect.NewResponse(toStatusResponse(s.session.GetStatus()))
}

// LoadQueue replaces the playback queue.
func (s *PlayerService) LoadQueue(
	ctx context.Context,
	req *connect.Request[LoadQueueRequest],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.LoadQueue(fromWireTracks(req.Msg.Tracks)); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// Play plays a queued track.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.Play(ctx, req.Msg.TrackID); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// PlayFromList loads a list as the queue and plays one of its tracks.
func (s *PlayerService) PlayFromList(
	ctx context.Context,
	req *connect.Request[PlayFromListRequest],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.PlayFromList(ctx, fromWireTracks(req.Msg.Tracks), req.Msg.TrackID); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.Pause(); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// Resume resumes playback.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.Resume(); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// Next plays the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.Next(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// Previous plays the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	if err := s.session.Previous(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.status(), nil
}

// GetStatus returns the playback status.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	return s.status(), nil
}

// Subscribe streams notifications, starting with the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[Notification],
) error {
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID, err := s.session.Subscribe(adapter)
	if err != nil {
		return toConnectError(err)
	}
	zlog.Debug().Msgf("subscriber joined: id=%s", subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	s.session.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("subscriber left: id=%s", subscriptionID)
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	return a.stream.Send(toWireNotification(n))
}
