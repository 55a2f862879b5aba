package audit

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit/badgerstore"
	"github.com/cohesix/ninedoor/internal/ninedoor/metrics"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
)

const lengthPrefixSize = 4

type record struct {
	entry       Entry
	startOffset uint64
	endOffset   uint64
}

// Log is one append-only audit ring (journal or decisions), backed by a
// telemetry.Ring for bounded byte storage and optionally mirrored into a
// Badger store for restart persistence (spec §4.8, §7 "Persisted state").
type Log struct {
	mu      sync.Mutex
	name    string
	ring    *telemetry.Ring
	records []record
	seq     uint64
	store   *badgerstore.Store
	metrics *metrics.AuditMetrics
}

// NewLog builds a Log with the given ring capacity. store may be nil to run
// in-memory only (e.g. tests); metrics may be nil.
func NewLog(name string, capacity int, store *badgerstore.Store, m *metrics.AuditMetrics) *Log {
	return &Log{
		name:    name,
		ring:    telemetry.NewRing(name, capacity, nil),
		store:   store,
		metrics: m,
	}
}

// Restore replays persisted entries from the Badger store back into the
// in-memory ring and index, in seq order, resuming the sequence counter.
func (l *Log) Restore() error {
	if l.store == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var restored []record
	err := l.store.LoadAll(l.name, func(seq uint64, value []byte) error {
		entry, err := decodeEntry(value)
		if err != nil {
			return err
		}
		restored = append(restored, record{entry: entry})
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.IoError, err, "restore audit log %q", l.name)
	}

	for i := range restored {
		e := restored[i].entry
		framed, encErr := frame(e)
		if encErr != nil {
			return encErr
		}
		start := l.ring.Bounds().NextOffset
		if _, err := l.ring.Append(framed); err != nil {
			return err
		}
		restored[i].startOffset = start
		restored[i].endOffset = start + uint64(len(framed))
		if e.Seq > l.seq {
			l.seq = e.Seq
		}
	}
	l.records = restored
	return nil
}

func frame(e Entry) ([]byte, error) {
	body, err := encodeEntry(e)
	if err != nil {
		return nil, err
	}
	out := make([]byte, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[lengthPrefixSize:], body)
	return out, nil
}

// Append assigns the next monotonic seq, writes the entry to the ring (and
// Badger, if configured), and evicts any persisted copies the ring has
// since truncated.
func (l *Log) Append(actor, verb, target, outcome, detail string, now time.Time) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e := Entry{Seq: l.seq, TsMs: now.UnixMilli(), Actor: actor, Verb: verb, Target: target, Outcome: outcome, Detail: detail}

	framed, err := frame(e)
	if err != nil {
		return Entry{}, err
	}

	start := l.ring.Bounds().NextOffset
	out, err := l.ring.Append(framed)
	if err != nil {
		return Entry{}, err
	}
	end := start + uint64(len(framed))
	l.records = append(l.records, record{entry: e, startOffset: start, endOffset: end})

	if l.store != nil {
		if err := l.store.Put(l.name, e.Seq, mustEncode(e)); err != nil {
			return Entry{}, apperr.Wrap(apperr.IoError, err, "persist audit entry")
		}
	}

	if out.DroppedBytes > 0 {
		l.evictTruncated(out.NewBase)
		l.metrics.RecordTruncate(l.name)
	}
	l.metrics.RecordAppend(l.name)

	return e, nil
}

func mustEncode(e Entry) []byte {
	b, _ := encodeEntry(e)
	return b
}

// evictTruncated drops in-memory and Badger-persisted records whose
// framed byte range fell entirely before the ring's new base offset.
func (l *Log) evictTruncated(newBase uint64) {
	i := 0
	for i < len(l.records) && l.records[i].endOffset <= newBase {
		if l.store != nil {
			_ = l.store.Delete(l.name, l.records[i].entry.Seq)
		}
		i++
	}
	l.records = l.records[i:]
}

// Bounds returns the ring's current retained offset window.
func (l *Log) Bounds() telemetry.Bounds {
	return l.ring.Bounds()
}

// Read returns up to count raw framed bytes starting at offset, delegating
// to the underlying ring for the stale/rewind/clamp contract.
func (l *Log) Read(offset uint64, count uint32) (telemetry.ReadOutcome, error) {
	return l.ring.Read(offset, count)
}

// Entries returns a copy of every entry still retained in the log, in seq
// order, used by /audit/export.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.records))
	for i, r := range l.records {
		out[i] = r.entry
	}
	return out
}
