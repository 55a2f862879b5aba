package pump

import (
	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
	"time"
)

// Negotiate runs the one-time Version handshake that fixes a session's
// Limits for its entire lifetime (spec §3 SessionLimits, §4.1): it blocks for
// the client's first frame, which must be a VersionRequest, and replies
// exactly once. The caller then builds a *session.Session from the returned
// Limits and starts a Pump for every subsequent frame; Version arriving
// again inside the pump proper is rejected as Invalid.
func Negotiate(transport Transport, timeout time.Duration, tagsPerSession, batchFrames int, swp session.ShortWritePolicy) (session.Limits, error) {
	frame, ok, err := transport.Poll(timeout)
	if err != nil {
		return session.Limits{}, err
	}
	if !ok {
		return session.Limits{}, apperr.New(apperr.IoError, "version handshake timed out")
	}

	tag, req, decErr := wire.DecodeRequest(frame)
	if decErr != nil {
		return session.Limits{}, apperr.Wrap(apperr.Invalid, decErr, "decode version frame")
	}

	vr, ok := req.(wire.VersionRequest)
	if !ok {
		sendErr := apperr.New(apperr.Invalid, "first frame must be a version request")
		_ = transport.Send(wire.EncodeResponse(tag, errorResponse(sendErr)))
		return session.Limits{}, sendErr
	}

	limits, limitsErr := session.NewLimits(vr.Msize, tagsPerSession, batchFrames, swp)
	if limitsErr != nil {
		_ = transport.Send(wire.EncodeResponse(tag, errorResponse(limitsErr)))
		return session.Limits{}, limitsErr
	}

	_ = transport.Send(wire.EncodeResponse(tag, wire.VersionResponse{Msize: limits.Msize, Version: vr.Version}))
	return limits, nil
}

func errorResponse(err error) wire.ErrorResponse {
	return wire.ErrorResponse{Code: mapError(apperr.CodeOf(err)), Message: err.Error()}
}
