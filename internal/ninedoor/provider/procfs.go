package provider

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// PressureCounters mirrors the raw integers behind /proc/pressure/* so a
// client can read them without scraping Prometheus, alongside the
// PolicyMetrics counters of the same events.
type PressureCounters struct {
	Busy  atomic.Int64
	Quota atomic.Int64
	Cut   atomic.Int64
	Policy atomic.Int64
}

// IngestCounters mirrors /proc/ingest/*'s latency and drop figures, updated
// by the event pump (C11).
type IngestCounters struct {
	P50Ms        atomic.Int64
	P95Ms        atomic.Int64
	Backpressure atomic.Int64
	Drops        atomic.Int64
}

// SessionLookup resolves a session id to its current phase for
// /proc/9p/session/<id>/state, supplied by whatever owns the live session
// table (the event pump) to avoid procfs depending on it directly.
type SessionLookup func(id string) (session.Phase, bool)

// ProcFsProvider serves /proc/{lifecycle,pressure,9p/session/*,boot,ingest}.
type ProcFsProvider struct {
	baseProvider
	lifecycle *Lifecycle
	pressure  *PressureCounters
	ingest    *IngestCounters
	lookup    SessionLookup
	bootInfo  atomic.Pointer[[]byte]
	now       func() time.Time
}

// NewProcFsProvider builds the /proc provider.
func NewProcFsProvider(lifecycle *Lifecycle, pressure *PressureCounters, ingest *IngestCounters, lookup SessionLookup) *ProcFsProvider {
	return &ProcFsProvider{
		baseProvider: baseProvider{mount: "/proc"},
		lifecycle:    lifecycle,
		pressure:     pressure,
		ingest:       ingest,
		lookup:       lookup,
		now:          time.Now,
	}
}

// SetBootSummary installs the bootinfo JSON snapshot read from /proc/boot,
// set once the root-task bootstrap commits.
func (p *ProcFsProvider) SetBootSummary(body []byte) {
	cp := append([]byte(nil), body...)
	p.bootInfo.Store(&cp)
}

func (p *ProcFsProvider) Resolve(rel string) (wire.Qid, error) {
	switch {
	case rel == "":
		return wire.Qid{Type: wire.QidDir}, nil
	case rel == "lifecycle" || rel == "pressure" || rel == "ingest" || rel == "9p" || rel == "9p/session":
		return wire.Qid{Type: wire.QidDir}, nil
	case rel == "lifecycle/state" || rel == "lifecycle/reason" || rel == "lifecycle/since":
		return wire.Qid{Type: wire.QidFile}, nil
	case rel == "pressure/busy" || rel == "pressure/quota" || rel == "pressure/cut" || rel == "pressure/policy":
		return wire.Qid{Type: wire.QidFile}, nil
	case rel == "ingest/p50" || rel == "ingest/p95" || rel == "ingest/backpressure" || rel == "ingest/drops":
		return wire.Qid{Type: wire.QidFile}, nil
	case rel == "boot":
		return wire.Qid{Type: wire.QidFile}, nil
	case strings.HasPrefix(rel, "9p/session/") && strings.HasSuffix(rel, "/state"):
		id := strings.TrimSuffix(strings.TrimPrefix(rel, "9p/session/"), "/state")
		if _, ok := p.lookup(id); !ok {
			return wire.Qid{}, apperr.New(apperr.NotFound, "no such session %q", id)
		}
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such proc path %q", rel)
	}
}

func (p *ProcFsProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	return nil, nil
}

func (p *ProcFsProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	var body string
	switch {
	case rel == "lifecycle/state":
		state, _, _ := p.lifecycle.Snapshot(p.now())
		body = state.String()
	case rel == "lifecycle/reason":
		_, reason, _ := p.lifecycle.Snapshot(p.now())
		body = reason
	case rel == "lifecycle/since":
		_, _, since := p.lifecycle.Snapshot(p.now())
		body = fmt.Sprintf("%d", since.Milliseconds())
	case rel == "pressure/busy":
		body = fmt.Sprintf("%d", p.pressure.Busy.Load())
	case rel == "pressure/quota":
		body = fmt.Sprintf("%d", p.pressure.Quota.Load())
	case rel == "pressure/cut":
		body = fmt.Sprintf("%d", p.pressure.Cut.Load())
	case rel == "pressure/policy":
		body = fmt.Sprintf("%d", p.pressure.Policy.Load())
	case rel == "ingest/p50":
		body = fmt.Sprintf("%d", p.ingest.P50Ms.Load())
	case rel == "ingest/p95":
		body = fmt.Sprintf("%d", p.ingest.P95Ms.Load())
	case rel == "ingest/backpressure":
		body = fmt.Sprintf("%d", p.ingest.Backpressure.Load())
	case rel == "ingest/drops":
		body = fmt.Sprintf("%d", p.ingest.Drops.Load())
	case rel == "boot":
		if b := p.bootInfo.Load(); b != nil {
			return bytesSlice(*b, offset, count), nil
		}
		body = "{}"
	case strings.HasPrefix(rel, "9p/session/") && strings.HasSuffix(rel, "/state"):
		id := strings.TrimSuffix(strings.TrimPrefix(rel, "9p/session/"), "/state")
		phase, ok := p.lookup(id)
		if !ok {
			return nil, apperr.New(apperr.NotFound, "no such session %q", id)
		}
		body = "state=" + phase.String()
	default:
		return nil, apperr.New(apperr.NotFound, "no such proc path %q", rel)
	}
	return bytesSlice([]byte(body), offset, count), nil
}

func (p *ProcFsProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	return 0, apperr.New(apperr.Permission, "%q is read-only", rel)
}
