package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// spawnTargetHeartbeat is the only worker kind /queen/ctl may spawn today
// (original_source/apps/nine-door/src/control.rs SpawnTarget::Heartbeat).
const spawnTargetHeartbeat = "heartbeat"

// budgetFields carries optional ttl_s/ops overrides, shared by spawn and
// budget commands, grounded on control.rs's BudgetFields.
type budgetFields struct {
	TTLSeconds *uint64 `json:"ttl_s,omitempty"`
	Ops        *uint64 `json:"ops,omitempty"`
}

func (f *budgetFields) apply(base ticket.Budget) ticket.Budget {
	out := base
	if f.TTLSeconds != nil {
		out.TTLSeconds = f.TTLSeconds
	}
	if f.Ops != nil {
		out.Ops = f.Ops
	}
	return out
}

type spawnCommand struct {
	Spawn  string        `json:"spawn"`
	Ticks  uint64        `json:"ticks"`
	Budget *budgetFields `json:"budget,omitempty"`
}

type killCommand struct {
	Kill string `json:"kill"`
}

type budgetCommand struct {
	Budget budgetFields `json:"budget"`
}

// parseQueenCommand decodes one /queen/ctl JSON line, rejecting unknown
// fields per-variant and picking the variant by which discriminator key is
// present (control.rs's untagged QueenCommand enum has no wire tag of its
// own, so Go does the same dispatch-on-shape).
func parseQueenCommand(line []byte) (any, error) {
	var probe map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(&probe); err != nil {
		return nil, apperr.Wrap(apperr.Invalid, err, "invalid queen command")
	}

	switch {
	case has(probe, "spawn"):
		var cmd spawnCommand
		if err := strictDecode(line, &cmd); err != nil {
			return nil, err
		}
		if cmd.Spawn != spawnTargetHeartbeat {
			return nil, apperr.New(apperr.Invalid, "unsupported spawn target %q", cmd.Spawn)
		}
		return cmd, nil
	case has(probe, "kill"):
		var cmd killCommand
		if err := strictDecode(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case has(probe, "budget"):
		var cmd budgetCommand
		if err := strictDecode(line, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return nil, apperr.New(apperr.Invalid, "queen command missing spawn/kill/budget discriminator")
	}
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

func strictDecode(line []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.Invalid, err, "invalid queen command")
	}
	return nil
}

// QueenProvider serves /queen/ctl and /queen/lifecycle/ctl, the only
// namespace entries that mutate process-wide worker/lifecycle state (spec
// §4.5).
type QueenProvider struct {
	baseProvider
	registry  *WorkerRegistry
	lifecycle *Lifecycle
	ctlLog    *LogProvider
	now       func() time.Time
}

// NewQueenProvider builds the /queen provider over registry and lifecycle.
// ctlLog, if non-nil, receives an audit line for every accepted command.
func NewQueenProvider(registry *WorkerRegistry, lifecycle *Lifecycle, ctlLog *LogProvider) *QueenProvider {
	return &QueenProvider{
		baseProvider: baseProvider{mount: "/queen"},
		registry:     registry,
		lifecycle:    lifecycle,
		ctlLog:       ctlLog,
		now:          time.Now,
	}
}

const (
	queenCtlFile          = "ctl"
	queenLifecycleCtlFile = "lifecycle/ctl"
)

func (p *QueenProvider) Resolve(rel string) (wire.Qid, error) {
	switch rel {
	case "":
		return wire.Qid{Type: wire.QidDir}, nil
	case queenCtlFile:
		return wire.Qid{Type: wire.QidFile}, nil
	case "lifecycle":
		return wire.Qid{Type: wire.QidDir}, nil
	case queenLifecycleCtlFile:
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such queen path %q", rel)
	}
}

func (p *QueenProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	switch rel {
	case queenCtlFile, queenLifecycleCtlFile:
		if actor.Role != ticket.RoleQueen {
			return nil, apperr.New(apperr.Permission, "only the queen role may open %q", rel)
		}
		return nil, nil
	default:
		return nil, apperr.New(apperr.NotFound, "no such queen path %q", rel)
	}
}

func (p *QueenProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	return nil, apperr.New(apperr.Invalid, "%q is write-only", rel)
}

func (p *QueenProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	if actor.Role != ticket.RoleQueen {
		return 0, apperr.New(apperr.Permission, "only the queen role may write %q", rel)
	}
	switch rel {
	case queenCtlFile:
		return p.writeCtl(data)
	case queenLifecycleCtlFile:
		return p.writeLifecycleCtl(data)
	default:
		return 0, apperr.New(apperr.NotFound, "no such queen path %q", rel)
	}
}

func (p *QueenProvider) writeCtl(data []byte) (uint32, error) {
	cmd, err := parseQueenCommand(bytes.TrimSpace(data))
	if err != nil {
		return 0, err
	}

	switch c := cmd.(type) {
	case spawnCommand:
		budget := ticket.DefaultBudgetFor(ticket.RoleWorkerHeartbeat)
		ticks := c.Ticks
		budget.Ticks = &ticks
		if c.Budget != nil {
			budget = c.Budget.apply(budget)
		}
		w := p.registry.Spawn(c.Ticks, &budget)
		p.audit(fmt.Sprintf("spawn worker=%s ticks=%d", w.ID, c.Ticks))
	case killCommand:
		if err := p.registry.Kill(c.Kill); err != nil {
			return 0, err
		}
		p.audit(fmt.Sprintf("kill worker=%s", c.Kill))
	case budgetCommand:
		base := p.registry.defaultBudget
		p.registry.SetDefaultBudget(c.Budget.apply(base))
		p.audit("budget update")
	}
	return uint32(len(data)), nil
}

func (p *QueenProvider) writeLifecycleCtl(data []byte) (uint32, error) {
	line := string(bytes.TrimSpace(data))
	if err := p.lifecycle.Apply(line, "operator command", p.now()); err != nil {
		return 0, err
	}
	p.audit(fmt.Sprintf("lifecycle %s", line))
	return uint32(len(data)), nil
}

func (p *QueenProvider) audit(line string) {
	if p.ctlLog == nil {
		return
	}
	_, _ = p.ctlLog.Write(logFileName, nil, ^uint64(0), []byte(line+"\n"), Actor{})
}
