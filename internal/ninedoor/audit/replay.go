package audit

import (
	"fmt"
	"hash/fnv"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// ReplayState mirrors /replay/status's {state} field (spec §4.8).
type ReplayState string

const (
	ReplayIdle  ReplayState = "idle"
	ReplayOK    ReplayState = "ok"
	ReplayError ReplayState = "error"
)

// ReplayResult is the outcome of replaying a log from an offset, rendered
// directly by /replay/status.
type ReplayResult struct {
	State         ReplayState
	Entries       int
	SequenceFNV1a string
}

// ReplayFrom replays entries in [from, next) in seq order, producing an
// FNV-1a-64 hash over the canonical concatenation of "OK\n"/"ERR\n" per
// entry outcome (spec §4.8). from must fall within [base_offset,
// next_offset]; otherwise the replay fails Invalid.
func (l *Log) ReplayFrom(from uint64) (ReplayResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bounds := l.ring.Bounds()
	if from < bounds.BaseOffset || from > bounds.NextOffset {
		return ReplayResult{State: ReplayError}, apperr.New(apperr.Invalid, "replay offset %d outside [%d, %d]", from, bounds.BaseOffset, bounds.NextOffset)
	}

	h := fnv.New64a()
	count := 0
	for _, r := range l.records {
		if r.startOffset < from {
			continue
		}
		line := "ERR\n"
		if r.entry.IsOK() {
			line = "OK\n"
		}
		_, _ = h.Write([]byte(line))
		count++
	}

	return ReplayResult{
		State:         ReplayOK,
		Entries:       count,
		SequenceFNV1a: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}
