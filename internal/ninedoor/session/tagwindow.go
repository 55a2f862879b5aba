package session

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// TagWindow bounds outstanding tags per session (spec §4.3). Tags are
// released on response emission or an explicit Flush.
type TagWindow struct {
	mu       sync.Mutex
	limit    int
	inflight map[uint16]struct{}
}

// NewTagWindow builds a TagWindow bounded by limit outstanding tags.
func NewTagWindow(limit int) *TagWindow {
	return &TagWindow{limit: limit, inflight: make(map[uint16]struct{})}
}

// Acquire reserves tag, failing with TooManyOutstanding once limit is hit.
func (w *TagWindow) Acquire(tag uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[tag]; ok {
		return apperr.New(apperr.Invalid, "tag %d already outstanding", tag)
	}
	if len(w.inflight) >= w.limit {
		return apperr.New(apperr.Again, "too many outstanding tags (limit %d)", w.limit)
	}
	w.inflight[tag] = struct{}{}
	return nil
}

// Release frees tag. Releasing an unknown tag (e.g. an explicit Flush on an
// already-completed request) is a no-op.
func (w *TagWindow) Release(tag uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, tag)
}

// Outstanding returns the count of currently reserved tags.
func (w *TagWindow) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight)
}
