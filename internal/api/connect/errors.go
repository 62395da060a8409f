package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/19wave/internal/app/playback"
	"github.com/osa030/19wave/internal/app/session"
	"github.com/osa030/19wave/internal/app/trendcache"
	"github.com/osa030/19wave/internal/domain/trend"
)

// toConnectError maps application errors to connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var code connect.Code
	switch {
	case errors.Is(err, playback.ErrTrackNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, trend.ErrInvalidPeriod), errors.Is(err, session.ErrInvalidContext):
		code = connect.CodeInvalidArgument
	// Timeouts are also marked as fetch or load failures
	case errors.Is(err, trendcache.ErrTimeout), errors.Is(err, playback.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, trendcache.ErrFetchFailed), errors.Is(err, playback.ErrResourceLoadFailed), errors.Is(err, playback.ErrClosed):
		code = connect.CodeUnavailable
	case errors.Is(err, playback.ErrSuperseded):
		code = connect.CodeAborted
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
