//go:build !mpv

package audio

import "github.com/cockroachdb/errors"

func newMPV() (Player, error) {
	return nil, errors.New("mpv backend is not available: rebuild with -tags mpv")
}
