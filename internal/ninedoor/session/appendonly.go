// Package session implements the C3 session & fid core: per-session limits,
// a sharded fid table, tag window, queue depth, lifecycle tracking, and the
// append-only offset bounds helpers, ported closely from
// original_source/crates/secure9p-core/src/lib.rs.
package session

import "github.com/cohesix/ninedoor/internal/ninedoor/apperr"

// ReadBounds describes a resolved append-only read request.
type ReadBounds struct {
	Offset uint64
	Len    int
	Short  bool
}

// WriteBounds describes a resolved append-only write request.
type WriteBounds struct {
	Len   int
	Short bool
}

// AppendOnlyReadBounds enforces append-only read semantics and computes the
// short-read flag, matching secure9p-core's append_only_read_bounds: offsets
// behind the retained window are Stale; offsets beyond the available end
// are clamped rather than erroring.
func AppendOnlyReadBounds(offset, availableStart, availableEnd uint64, count uint32) (ReadBounds, error) {
	if offset < availableStart {
		return ReadBounds{}, apperr.New(apperr.Invalid, "stale offset %d; oldest available %d", offset, availableStart)
	}
	var available int
	if availableEnd > offset {
		available = int(availableEnd - offset)
	}
	requested := int(count)
	length := requested
	if available < length {
		length = available
	}
	return ReadBounds{Offset: offset, Len: length, Short: length < requested}, nil
}

// AppendOnlyWriteBounds enforces append-only write semantics: the provided
// offset must equal the expected next-append position (or the sentinel
// u64::MAX meaning "append at the current tail"), computing the short-write
// flag when maxLen truncates the request.
func AppendOnlyWriteBounds(expectedOffset, providedOffset uint64, maxLen, requestedLen int) (WriteBounds, error) {
	const appendSentinel = ^uint64(0)
	if providedOffset != expectedOffset && providedOffset != appendSentinel {
		return WriteBounds{}, apperr.New(apperr.Invalid, "offset %d does not match expected %d", providedOffset, expectedOffset)
	}
	length := requestedLen
	if length > maxLen {
		length = maxLen
	}
	return WriteBounds{Len: length, Short: length < requestedLen}, nil
}
