package provider

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const (
	defaultWorkerRingCapacity = 64 << 10
	defaultWorkerCursorRewind = telemetry.DefaultMaxRewindBytes
)

// WorkerState is one spawned worker's telemetry/status rings and budget,
// owned process-wide by WorkerRegistry (spec §3 "/worker/<id>/*").
type WorkerState struct {
	ID        string
	Telemetry *telemetry.Ring
	Status    *telemetry.Ring
	Ticks     uint64
	Budget    ticket.Budget
	killed    atomic.Bool
}

// WorkerRegistry owns the process-wide spawn/kill namespace under /worker,
// mutated only by /queen/ctl (spec §4.5 "/queen/ctl").
type WorkerRegistry struct {
	mu             sync.Mutex
	workers        map[string]*WorkerState
	nextID         int
	defaultBudget  ticket.Budget
	ringCapacity   int
	metrics        *Metrics
}

// NewWorkerRegistry builds an empty registry with the given default spawn
// budget and per-worker ring capacity.
func NewWorkerRegistry(defaultBudget ticket.Budget, ringCapacity int, m *Metrics) *WorkerRegistry {
	if ringCapacity <= 0 {
		ringCapacity = defaultWorkerRingCapacity
	}
	return &WorkerRegistry{workers: make(map[string]*WorkerState), defaultBudget: defaultBudget, ringCapacity: ringCapacity, metrics: m}
}

// Spawn allocates a fresh worker id and telemetry/status rings, applying
// ticks and an optional budget override on top of the registry default.
func (r *WorkerRegistry) Spawn(ticks uint64, budget *ticket.Budget) *WorkerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("worker-%d", r.nextID)
	b := r.defaultBudget
	if budget != nil {
		b = *budget
	}
	w := &WorkerState{
		ID:        id,
		Telemetry: telemetry.NewRing(id+":telemetry", r.ringCapacity, r.metrics.telemetry()),
		Status:    telemetry.NewRing(id+":status", r.ringCapacity, r.metrics.telemetry()),
		Ticks:     ticks,
		Budget:    b,
	}
	r.workers[id] = w
	return w
}

// Kill detaches a worker subtree; further reads fail NotFound (spec
// §4.5 "/queen/ctl").
func (r *WorkerRegistry) Kill(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return apperr.New(apperr.NotFound, "worker %q not found", id)
	}
	w.killed.Store(true)
	delete(r.workers, id)
	return nil
}

// SetDefaultBudget updates the registry's default spawn budget.
func (r *WorkerRegistry) SetDefaultBudget(b ticket.Budget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBudget = b
}

// Get returns the live worker state for id.
func (r *WorkerRegistry) Get(id string) (*WorkerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	return w, ok
}

// workerCursor is the per-fid Handle for a telemetry read.
type workerCursor struct {
	cursor *telemetry.Cursor
}

// WorkerProvider serves /worker/<id>/{telemetry,status}.
type WorkerProvider struct {
	baseProvider
	registry *WorkerRegistry
}

// NewWorkerProvider builds the /worker provider over registry.
func NewWorkerProvider(registry *WorkerRegistry) *WorkerProvider {
	return &WorkerProvider{baseProvider: baseProvider{mount: "/worker"}, registry: registry}
}

func splitWorkerRel(rel string) (id, leaf string, ok bool) {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (p *WorkerProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		if _, found := p.registry.Get(rel); found {
			return wire.Qid{Type: wire.QidDir}, nil
		}
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such worker path %q", rel)
	}
	if _, found := p.registry.Get(id); !found {
		return wire.Qid{}, apperr.New(apperr.NotFound, "worker %q not found", id)
	}
	switch leaf {
	case "telemetry", "status":
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such worker file %q", leaf)
	}
}

func (p *WorkerProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such worker path %q", rel)
	}
	w, found := p.registry.Get(id)
	if !found {
		return nil, apperr.New(apperr.NotFound, "worker %q not found", id)
	}
	if leaf == "telemetry" && mode != session.OpenRead {
		// Write is permitted only to the worker's own subject (spec §4.5).
		if actor.Subject != id && actor.Role != ticket.RoleQueen {
			return nil, apperr.New(apperr.Permission, "only worker %q may write its own telemetry", id)
		}
	}
	if leaf == "telemetry" && mode == session.OpenRead {
		ring := w.Telemetry
		return &workerCursor{cursor: telemetry.NewCursor(true, ring.Capacity())}, nil
	}
	return nil, nil
}

func (p *WorkerProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such worker path %q", rel)
	}
	w, found := p.registry.Get(id)
	if !found {
		return nil, apperr.New(apperr.NotFound, "worker %q not found", id)
	}
	ring := ringFor(w, leaf)
	if ring == nil {
		return nil, apperr.New(apperr.NotFound, "no such worker file %q", leaf)
	}

	resolved := offset
	if wc, ok := h.(*workerCursor); ok && wc != nil {
		res, err := wc.cursor.Resolve(offset, ring.Bounds())
		if err != nil {
			return nil, err
		}
		resolved = res.Offset
	}
	out, err := ring.Read(resolved, count)
	if err != nil {
		return nil, err
	}
	if wc, ok := h.(*workerCursor); ok && wc != nil {
		wc.cursor.Advance(resolved + uint64(len(out.Data)))
	}
	return out.Data, nil
}

func (p *WorkerProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	id, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return 0, apperr.New(apperr.NotFound, "no such worker path %q", rel)
	}
	w, found := p.registry.Get(id)
	if !found {
		return 0, apperr.New(apperr.NotFound, "worker %q not found", id)
	}
	ring := ringFor(w, leaf)
	if ring == nil {
		return 0, apperr.New(apperr.NotFound, "no such worker file %q", leaf)
	}
	bounds := ring.Bounds()
	wb, err := session.AppendOnlyWriteBounds(bounds.NextOffset, offset, ring.Capacity(), len(data))
	if err != nil {
		return 0, err
	}
	out, err := ring.Append(data[:wb.Len])
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

func ringFor(w *WorkerState, leaf string) *telemetry.Ring {
	switch leaf {
	case "telemetry":
		return w.Telemetry
	case "status":
		return w.Status
	default:
		return nil
	}
}
