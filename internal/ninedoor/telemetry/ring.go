// Package telemetry implements the C6 telemetry ring and cursor, ported
// closely from original_source/apps/nine-door/src/host/telemetry/{ring,
// cursor}.rs, plus ingest metrics feeding /proc/ingest/*.
package telemetry

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/metrics"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
)

// Bounds is a snapshot of a ring's retained offset window.
type Bounds struct {
	BaseOffset uint64
	NextOffset uint64
}

// WriteOutcome reports the result of an append.
type WriteOutcome struct {
	Count        uint32
	DroppedBytes uint64
	NewBase      uint64
}

// Ring is a bounded append-only byte ring per (device|worker) (spec §3
// TelemetryRing): base_offset <= next_offset, next_offset - base_offset <=
// capacity.
type Ring struct {
	mu         sync.Mutex
	buffer     []byte
	capacity   int
	baseOffset uint64
	nextOffset uint64
	metrics    *metrics.TelemetryMetrics
	name       string
}

// NewRing builds a Ring with the given capacity (minimum 1 byte).
func NewRing(name string, capacity int, m *metrics.TelemetryMetrics) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buffer: make([]byte, capacity), capacity: capacity, metrics: m, name: name}
}

// Capacity returns the ring's configured capacity.
func (r *Ring) Capacity() int { return r.capacity }

// Bounds returns the ring's retained offset window.
func (r *Ring) Bounds() Bounds {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Bounds{BaseOffset: r.baseOffset, NextOffset: r.nextOffset}
}

// Append writes data, wrapping and dropping the oldest bytes as needed to
// respect capacity. An append larger than capacity fails with TooBig
// ("Oversize" in spec §4.6 terms).
func (r *Ring) Append(data []byte) (WriteOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(data) == 0 {
		return WriteOutcome{NewBase: r.baseOffset}, nil
	}
	if len(data) > r.capacity {
		return WriteOutcome{}, apperr.New(apperr.TooBig, "append of %d bytes exceeds ring capacity %d", len(data), r.capacity)
	}

	used := int(r.nextOffset - r.baseOffset)
	totalNeeded := used + len(data)
	var dropped uint64
	if totalNeeded > r.capacity {
		dropped = uint64(totalNeeded - r.capacity)
		r.baseOffset += dropped
		r.metrics.RecordDrop()
	}

	start := int(r.nextOffset % uint64(r.capacity))
	firstLen := r.capacity - start
	if firstLen > len(data) {
		firstLen = len(data)
	}
	copy(r.buffer[start:start+firstLen], data[:firstLen])
	if firstLen < len(data) {
		remaining := len(data) - firstLen
		copy(r.buffer[:remaining], data[firstLen:])
	}
	r.nextOffset += uint64(len(data))
	r.metrics.RecordAppend(r.name)

	return WriteOutcome{Count: uint32(len(data)), DroppedBytes: dropped, NewBase: r.baseOffset}, nil
}

// ReadOutcome carries the bytes returned by a Read.
type ReadOutcome struct {
	Data  []byte
	Short bool
}

// Read returns up to count bytes starting at offset, delegating bounds
// resolution to session.AppendOnlyReadBounds exactly as ring.rs's read()
// delegates to secure9p-core's append_only_read_bounds. A request with
// offset < base_offset fails Stale; offset > next_offset clamps to zero
// bytes rather than erroring.
func (r *Ring) Read(offset uint64, count uint32) (ReadOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	readOffset := offset
	clampedToTail := false
	if readOffset > r.nextOffset {
		readOffset = r.nextOffset
		clampedToTail = true
	}

	bounds, err := session.AppendOnlyReadBounds(readOffset, r.baseOffset, r.nextOffset, count)
	if err != nil {
		return ReadOutcome{}, apperr.Wrap(apperr.Invalid, err, "telemetry ring %q read", r.name)
	}
	if clampedToTail || bounds.Len == 0 {
		return ReadOutcome{Data: nil, Short: clampedToTail || bounds.Short}, nil
	}

	start := int(bounds.Offset % uint64(r.capacity))
	firstLen := r.capacity - start
	if firstLen > bounds.Len {
		firstLen = bounds.Len
	}
	out := make([]byte, 0, bounds.Len)
	out = append(out, r.buffer[start:start+firstLen]...)
	if firstLen < bounds.Len {
		remaining := bounds.Len - firstLen
		out = append(out, r.buffer[:remaining]...)
	}
	return ReadOutcome{Data: out, Short: bounds.Short}, nil
}
