package session

import (
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	ndconfig "github.com/cohesix/ninedoor/internal/ninedoor/config"
)

// ShortWriteKind selects between outright rejection and bounded retry for
// short writes on append-only qids (spec §3 SessionLimits).
type ShortWriteKind int

const (
	ShortWriteReject ShortWriteKind = iota
	ShortWriteRetryN
)

// ShortWritePolicy is immutable per session after Version negotiation.
type ShortWritePolicy struct {
	Kind     ShortWriteKind
	Attempts int
	Backoff  time.Duration
}

// DefaultShortWritePolicy bounds retries using the package tuning constants.
func DefaultShortWritePolicy() ShortWritePolicy {
	return ShortWritePolicy{
		Kind:     ShortWriteRetryN,
		Attempts: ndconfig.DefaultShortWriteRetries,
		Backoff:  ndconfig.DefaultShortWriteBackoff,
	}
}

// Limits are negotiated once at Version and immutable thereafter.
type Limits struct {
	Msize            uint32
	TagsPerSession   int
	BatchFrames      int
	ShortWritePolicy ShortWritePolicy
}

// NewLimits validates and constructs Limits from a Version request's
// negotiated values (spec §3: msize in [256, MAX_MSIZE], batch_frames >= 1).
func NewLimits(msize uint32, tagsPerSession, batchFrames int, swp ShortWritePolicy) (Limits, error) {
	if msize < ndconfig.DefaultMinMsize || msize > ndconfig.DefaultMaxMsize {
		return Limits{}, apperr.New(apperr.Invalid, "msize %d outside [%d, %d]", msize, ndconfig.DefaultMinMsize, ndconfig.DefaultMaxMsize)
	}
	if batchFrames < 1 {
		return Limits{}, apperr.New(apperr.Invalid, "batch_frames must be >= 1")
	}
	if tagsPerSession < 1 {
		return Limits{}, apperr.New(apperr.Invalid, "tags_per_session must be >= 1")
	}
	return Limits{Msize: msize, TagsPerSession: tagsPerSession, BatchFrames: batchFrames, ShortWritePolicy: swp}, nil
}
