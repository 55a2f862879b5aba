package provider

import (
	"encoding/json"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const defaultBusRingCapacity = 64 << 10

// BusState is one configured field-bus adapter mount's ctl/telemetry/spool
// rings and static link info (spec §4.5 "/bus/<mount>/*").
type BusState struct {
	Mount     string
	Ctl       *telemetry.Ring
	Telemetry *telemetry.Ring
	Spool     *telemetry.Ring
	Link      []byte

	mu           sync.Mutex
	replayOffset uint64
}

// BusRegistry holds the process-wide set of configured bus adapter mounts,
// provisioned at boot like GPUs.
type BusRegistry struct {
	mu    sync.Mutex
	buses map[string]*BusState
}

// NewBusRegistry builds an empty registry.
func NewBusRegistry() *BusRegistry {
	return &BusRegistry{buses: make(map[string]*BusState)}
}

// Register installs a bus adapter mount with its static link info and three
// bounded rings of the given capacity.
func (r *BusRegistry) Register(mount string, link []byte, ringCapacity int, m *Metrics) *BusState {
	if ringCapacity <= 0 {
		ringCapacity = defaultBusRingCapacity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b := &BusState{
		Mount:     mount,
		Ctl:       telemetry.NewRing(mount+":ctl", ringCapacity, m.telemetry()),
		Telemetry: telemetry.NewRing(mount+":telemetry", ringCapacity, m.telemetry()),
		Spool:     telemetry.NewRing(mount+":spool", ringCapacity, m.telemetry()),
		Link:      link,
	}
	r.buses[mount] = b
	return b
}

func (r *BusRegistry) Get(mount string) (*BusState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[mount]
	return b, ok
}

// BusProvider serves /bus/<mount>/{ctl,telemetry,link,replay,spool}.
type BusProvider struct {
	baseProvider
	registry *BusRegistry
}

// NewBusProvider builds the /bus provider over registry.
func NewBusProvider(registry *BusRegistry) *BusProvider {
	return &BusProvider{baseProvider: baseProvider{mount: "/bus"}, registry: registry}
}

func (p *BusProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	mount, leaf, ok := splitWorkerRel(rel)
	if !ok {
		if _, found := p.registry.Get(rel); found {
			return wire.Qid{Type: wire.QidDir}, nil
		}
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such bus path %q", rel)
	}
	if _, found := p.registry.Get(mount); !found {
		return wire.Qid{}, apperr.New(apperr.NotFound, "bus mount %q not found", mount)
	}
	switch leaf {
	case "link", "replay":
		return wire.Qid{Type: wire.QidFile}, nil
	case "ctl", "telemetry", "spool":
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such bus file %q", leaf)
	}
}

func (p *BusProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	mount, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such bus path %q", rel)
	}
	b, found := p.registry.Get(mount)
	if !found {
		return nil, apperr.New(apperr.NotFound, "bus mount %q not found", mount)
	}
	if leaf == "link" && mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "link is read-only")
	}
	ring := busRing(b, leaf)
	if ring != nil && mode == session.OpenRead {
		return &workerCursor{cursor: telemetry.NewCursor(true, ring.Capacity())}, nil
	}
	return nil, nil
}

func (p *BusProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	mount, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such bus path %q", rel)
	}
	b, found := p.registry.Get(mount)
	if !found {
		return nil, apperr.New(apperr.NotFound, "bus mount %q not found", mount)
	}
	switch leaf {
	case "link":
		return bytesSlice(b.Link, offset, count), nil
	case "replay":
		b.mu.Lock()
		body, _ := json.Marshal(map[string]any{"state": "ok", "offset": b.replayOffset})
		b.mu.Unlock()
		return bytesSlice(body, offset, count), nil
	case "ctl", "telemetry", "spool":
		ring := busRing(b, leaf)
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
	default:
		return nil, apperr.New(apperr.NotFound, "no such bus file %q", leaf)
	}
}

func (p *BusProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	mount, leaf, ok := splitWorkerRel(rel)
	if !ok {
		return 0, apperr.New(apperr.NotFound, "no such bus path %q", rel)
	}
	b, found := p.registry.Get(mount)
	if !found {
		return 0, apperr.New(apperr.NotFound, "bus mount %q not found", mount)
	}
	switch leaf {
	case "replay":
		var req replayRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return 0, apperr.Wrap(apperr.Invalid, err, "invalid bus replay request")
		}
		b.mu.Lock()
		b.replayOffset = req.From
		b.mu.Unlock()
		return uint32(len(data)), nil
	case "ctl", "telemetry", "spool":
		ring := busRing(b, leaf)
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
	case "link":
		return 0, apperr.New(apperr.Permission, "link is read-only")
	default:
		return 0, apperr.New(apperr.NotFound, "no such bus file %q", leaf)
	}
}

func busRing(b *BusState, leaf string) *telemetry.Ring {
	switch leaf {
	case "ctl":
		return b.Ctl
	case "telemetry":
		return b.Telemetry
	case "spool":
		return b.Spool
	default:
		return nil
	}
}
