// Package audit implements the C8 audit journal and decisions log: two
// append-only rings of structured entries with independent bounds, a
// Badger-backed persistence layer, and deterministic FNV-1a replay,
// grounded on spec §4.8 and the ring/cursor mechanics already built for
// internal/ninedoor/telemetry.
package audit

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// Entry is one structured audit line (spec §3 AuditEntry): a monotonic
// sequence number, timestamp, actor/verb/target triple, outcome, and a
// free-form detail string.
type Entry struct {
	Seq    uint64 `cbor:"seq"`
	TsMs   int64  `cbor:"ts_ms"`
	Actor  string `cbor:"actor"`
	Verb   string `cbor:"verb"`
	Target string `cbor:"target"`
	Outcome string `cbor:"outcome"`
	Detail string `cbor:"detail,omitempty"`
}

// IsOK reports whether the entry's outcome renders as "OK" in a replay
// hash (only "allow", "ok" and "OK" do; every other outcome renders as
// "ERR").
func (e Entry) IsOK() bool {
	switch e.Outcome {
	case "allow", "ok", "OK":
		return true
	default:
		return false
	}
}

func encodeEntry(e Entry) ([]byte, error) {
	b, err := cbor.Marshal(e)
	if err != nil {
		return nil, apperr.Wrap(apperr.IoError, err, "encode audit entry")
	}
	return b, nil
}

func decodeEntry(b []byte) (Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(b, &e); err != nil {
		return Entry{}, apperr.Wrap(apperr.IoError, err, "decode audit entry")
	}
	return e, nil
}
