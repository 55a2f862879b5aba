package telemetry

import (
	"fmt"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// DefaultMaxRewindBytes bounds how far behind the last-read offset a
// resumed cursor may request, clamped to the owning ring's capacity
// (ported from cursor.rs's DEFAULT_MAX_REWIND_BYTES).
const DefaultMaxRewindBytes = 1024

// AuditLevel classifies a telemetry cursor audit event's severity.
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
)

func (l AuditLevel) String() string {
	if l == AuditWarn {
		return "warn"
	}
	return "info"
}

// AuditEvent describes one cursor decision worth recording, carried back to
// the caller so it can be written to the audit journal (C8) without this
// package importing it directly.
type AuditEvent struct {
	Level   AuditLevel
	Message string
}

// Resolution is the result of a successful Resolve call.
type Resolution struct {
	Offset uint64
	Audit  *AuditEvent
}

// CursorError reports a Resolve rejection, always carrying an audit event
// the caller owes a Warn-level journal entry for.
type CursorError struct {
	code      apperr.ErrorCode
	Requested uint64
	RewindTo  uint64
	LastKnown uint64
	Audit     AuditEvent
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("%s: %s", e.code.Prefix(), e.Audit.Message)
}

// Code exposes the underlying ErrorCode for apperr.Is/CodeOf callers.
func (e *CursorError) Code() apperr.ErrorCode { return e.code }

// Cursor tracks a worker's last-read telemetry offset across reconnects
// (spec §3 TelemetryCursor), ported from
// original_source/apps/nine-door/src/host/telemetry/cursor.rs.
type Cursor struct {
	retainOnBoot bool
	lastOffset   *uint64
	maxRewind    uint64
}

// NewCursor builds a Cursor sized against ringCapacity (max_rewind =
// min(DefaultMaxRewindBytes, ringCapacity)).
func NewCursor(retainOnBoot bool, ringCapacity int) *Cursor {
	maxRewind := uint64(DefaultMaxRewindBytes)
	if uint64(ringCapacity) < maxRewind {
		maxRewind = uint64(ringCapacity)
	}
	return &Cursor{retainOnBoot: retainOnBoot, maxRewind: maxRewind}
}

// Snapshot returns the last advanced offset, if any, for persistence across
// a process restart.
func (c *Cursor) Snapshot() (uint64, bool) {
	if c.lastOffset == nil {
		return 0, false
	}
	return *c.lastOffset, true
}

// RestoreLastOffset seeds the cursor from persisted state, only when it
// still falls within the ring's current retained window.
func (c *Cursor) RestoreLastOffset(lastOffset *uint64, baseOffset, nextOffset uint64) {
	if lastOffset == nil {
		return
	}
	offset := *lastOffset
	if offset < baseOffset || offset > nextOffset {
		return
	}
	v := offset
	c.lastOffset = &v
}

// Resolve validates and normalises a requested read offset against a ring's
// current bounds:
//
//   - requested < base_offset: Stale, rejected regardless of last_offset.
//   - a prior last_offset exists and requested < last_offset: a rewind; if
//     last_offset-requested exceeds max_rewind it is RewindExceeded,
//     otherwise it succeeds with an Info audit (resuming within bounds).
//   - requested > next_offset: clamp to next_offset with an Info audit.
//   - otherwise: used as-is, no audit.
func (c *Cursor) Resolve(requested uint64, bounds Bounds) (Resolution, error) {
	if requested < bounds.BaseOffset {
		return Resolution{}, &CursorError{
			code:      apperr.Invalid,
			Requested: requested,
			RewindTo:  bounds.BaseOffset,
			Audit: AuditEvent{
				Level:   AuditWarn,
				Message: fmt.Sprintf("telemetry cursor stale requested=%d rewind_to=%d retain_on_boot=%t", requested, bounds.BaseOffset, c.retainOnBoot),
			},
		}
	}

	if last, have := c.Snapshot(); have && requested < last {
		rewind := last - requested
		if rewind > c.maxRewind {
			return Resolution{}, &CursorError{
				code:      apperr.TooBig,
				Requested: requested,
				RewindTo:  bounds.BaseOffset,
				LastKnown: last,
				Audit: AuditEvent{
					Level:   AuditWarn,
					Message: fmt.Sprintf("telemetry cursor rewind exceeded requested=%d last=%d max_rewind=%d rewind_to=%d retain_on_boot=%t", requested, last, c.maxRewind, bounds.BaseOffset, c.retainOnBoot),
				},
			}
		}
		return Resolution{
			Offset: requested,
			Audit: &AuditEvent{
				Level:   AuditInfo,
				Message: fmt.Sprintf("telemetry cursor rewind requested=%d last=%d bytes=%d", requested, last, rewind),
			},
		}, nil
	}

	if requested > bounds.NextOffset {
		return Resolution{
			Offset: bounds.NextOffset,
			Audit: &AuditEvent{
				Level:   AuditInfo,
				Message: fmt.Sprintf("telemetry cursor clamped requested=%d end=%d", requested, bounds.NextOffset),
			},
		}, nil
	}

	return Resolution{Offset: requested}, nil
}

// Advance records the offset reached after a successful read.
func (c *Cursor) Advance(offset uint64) {
	v := offset
	c.lastOffset = &v
}
