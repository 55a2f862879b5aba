package provider

import (
	"encoding/json"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// leaseState is the state carried by a /gpu/<id>/lease grant, spec §4.5:
// "Run dispatch requires an ACTIVE lease with matching schema".
const leaseStateActive = "ACTIVE"

// gpuLease is the single JSON lease grant a /gpu/<id>/lease write accepts
// and the exact bytes a subsequent read returns.
type gpuLease struct {
	Schema string `json:"schema"`
	State  string `json:"state"`
	raw    []byte
}

// GpuState is one configured GPU device's static info, status breadcrumb
// ring, and current lease.
type GpuState struct {
	ID     string
	Info   []byte
	Status *telemetry.Ring

	mu    sync.Mutex
	lease gpuLease
}

// CheckActiveLease reports whether the device currently holds an ACTIVE
// lease matching schema, the gate run-dispatch callers must pass.
func (g *GpuState) CheckActiveLease(schema string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lease.State != leaseStateActive {
		return apperr.New(apperr.Permission, "gpu %q has no active lease", g.ID)
	}
	if g.lease.Schema != schema {
		return apperr.New(apperr.Permission, "gpu %q lease schema %q does not match %q", g.ID, g.lease.Schema, schema)
	}
	return nil
}

// GpuRegistry holds the process-wide set of configured GPU devices (spec
// §4.5 "/gpu/<id>/*"); unlike workers, GPUs are provisioned at boot, not
// spawned by the queen.
type GpuRegistry struct {
	mu   sync.Mutex
	gpus map[string]*GpuState
}

// NewGpuRegistry builds an empty registry.
func NewGpuRegistry() *GpuRegistry {
	return &GpuRegistry{gpus: make(map[string]*GpuState)}
}

// Register installs a GPU device with its static info document and a fresh
// status ring of the given capacity.
func (r *GpuRegistry) Register(id string, info []byte, statusCapacity int, m *Metrics) *GpuState {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &GpuState{ID: id, Info: info, Status: telemetry.NewRing(id+":status", statusCapacity, m.telemetry())}
	r.gpus[id] = g
	return g
}

func (r *GpuRegistry) Get(id string) (*GpuState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gpus[id]
	return g, ok
}

// GpuProvider serves /gpu/<id>/{info,status,lease}.
type GpuProvider struct {
	baseProvider
	registry *GpuRegistry
}

// NewGpuProvider builds the /gpu provider over registry.
func NewGpuProvider(registry *GpuRegistry) *GpuProvider {
	return &GpuProvider{baseProvider: baseProvider{mount: "/gpu"}, registry: registry}
}

func (p *GpuProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		if _, found := p.registry.Get(rel); found {
			return wire.Qid{Type: wire.QidDir}, nil
		}
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such gpu path %q", rel)
	}
	if _, found := p.registry.Get(id); !found {
		return wire.Qid{}, apperr.New(apperr.NotFound, "gpu %q not found", id)
	}
	switch leaf {
	case "info", "lease":
		return wire.Qid{Type: wire.QidFile}, nil
	case "status":
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such gpu file %q", leaf)
	}
}

func (p *GpuProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such gpu path %q", rel)
	}
	g, found := p.registry.Get(id)
	if !found {
		return nil, apperr.New(apperr.NotFound, "gpu %q not found", id)
	}
	if leaf == "info" && mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "gpu info is read-only")
	}
	if leaf == "status" && mode == session.OpenRead {
		return &workerCursor{cursor: telemetry.NewCursor(true, g.Status.Capacity())}, nil
	}
	return nil, nil
}

func (p *GpuProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such gpu path %q", rel)
	}
	g, found := p.registry.Get(id)
	if !found {
		return nil, apperr.New(apperr.NotFound, "gpu %q not found", id)
	}
	switch leaf {
	case "info":
		return bytesSlice(g.Info, offset, count), nil
	case "lease":
		g.mu.Lock()
		defer g.mu.Unlock()
		return bytesSlice(g.lease.raw, offset, count), nil
	case "status":
		resolved := offset
		if wc, ok := h.(*workerCursor); ok && wc != nil {
			res, err := wc.cursor.Resolve(offset, g.Status.Bounds())
			if err != nil {
				return nil, err
			}
			resolved = res.Offset
		}
		out, err := g.Status.Read(resolved, count)
		if err != nil {
			return nil, err
		}
		if wc, ok := h.(*workerCursor); ok && wc != nil {
			wc.cursor.Advance(resolved + uint64(len(out.Data)))
		}
		return out.Data, nil
	default:
		return nil, apperr.New(apperr.NotFound, "no such gpu file %q", leaf)
	}
}

func (p *GpuProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return 0, apperr.New(apperr.NotFound, "no such gpu path %q", rel)
	}
	g, found := p.registry.Get(id)
	if !found {
		return 0, apperr.New(apperr.NotFound, "gpu %q not found", id)
	}
	switch leaf {
	case "lease":
		var l gpuLease
		if err := json.Unmarshal(data, &l); err != nil {
			return 0, apperr.Wrap(apperr.Invalid, err, "invalid gpu lease")
		}
		l.raw = append([]byte(nil), data...)
		g.mu.Lock()
		g.lease = l
		g.mu.Unlock()
		return uint32(len(data)), nil
	case "status":
		bounds := g.Status.Bounds()
		wb, err := session.AppendOnlyWriteBounds(bounds.NextOffset, offset, g.Status.Capacity(), len(data))
		if err != nil {
			return 0, err
		}
		out, err := g.Status.Append(data[:wb.Len])
		if err != nil {
			return 0, err
		}
		return out.Count, nil
	case "info":
		return 0, apperr.New(apperr.Permission, "gpu info is read-only")
	default:
		return 0, apperr.New(apperr.NotFound, "no such gpu file %q", leaf)
	}
}

// bytesSlice is a bounds-safe helper for the small static/latest-value files
// (info, lease) that aren't backed by a telemetry.Ring.
func bytesSlice(data []byte, offset uint64, count uint32) []byte {
	if offset >= uint64(len(data)) {
		return nil
	}
	end := offset + uint64(count)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return data[offset:end]
}
