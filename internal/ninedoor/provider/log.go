package provider

import (
	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// endMarker is appended once a /log/queen.log (or any streamed-body
// provider built on it) read drains to the ring's current tail, per spec
// §4.5 "/log/queen.log ... Read streams lines with END terminator once
// drained".
const endMarker = "END\n"

// LogProvider serves the process-wide /log/queen.log append-only text
// ring.
type LogProvider struct {
	baseProvider
	ring *telemetry.Ring
}

const logFileName = "queen.log"

// NewLogProvider builds the /log provider with the given ring capacity.
func NewLogProvider(capacity int, m *Metrics) *LogProvider {
	return &LogProvider{
		baseProvider: baseProvider{mount: "/log"},
		ring:         telemetry.NewRing(logFileName, capacity, m.telemetry()),
	}
}

func (p *LogProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	if rel == logFileName {
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	}
	return wire.Qid{}, apperr.New(apperr.NotFound, "no such log %q", rel)
}

func (p *LogProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if rel != logFileName {
		return nil, apperr.New(apperr.NotFound, "no such log %q", rel)
	}
	return nil, nil
}

// Read streams ring bytes from offset, appending the END sentinel once the
// read drains to the current tail with no bytes returned.
func (p *LogProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	if rel != logFileName {
		return nil, apperr.New(apperr.NotFound, "no such log %q", rel)
	}
	out, err := p.ring.Read(offset, count)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return []byte(endMarker), nil
	}
	return out.Data, nil
}

// Write appends a line to the log; the caller addresses it with
// offset=u64::MAX (append) per the append-only write contract.
func (p *LogProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	if rel != logFileName {
		return 0, apperr.New(apperr.NotFound, "no such log %q", rel)
	}
	bounds := p.ring.Bounds()
	wb, err := session.AppendOnlyWriteBounds(bounds.NextOffset, offset, p.ring.Capacity(), len(data))
	if err != nil {
		return 0, err
	}
	out, err := p.ring.Append(data[:wb.Len])
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}
