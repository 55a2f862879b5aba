package provider

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/policy"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

// hostCommand is the envelope a /host/<provider>/* write carries: the
// approval record it claims authorizes the action (spec §4.7 "Gated
// operations ... require a matching ApprovalRecord that is queued").
type hostCommand struct {
	ApprovalID string `json:"approval_id"`
}

// HostProvider serves /host/<provider>/*, generic external control-unit
// surfaces (e.g. "systemd/<unit>/restart") whose writes are always gated by
// the C7 approval queue (spec §4.5 "/host/<provider>/*").
type HostProvider struct {
	baseProvider
	queue *policy.Queue
	now   func() time.Time

	mu      sync.Mutex
	applied map[string]int
}

// NewHostProvider builds the /host provider, gating every write against queue.
func NewHostProvider(queue *policy.Queue) *HostProvider {
	return &HostProvider{
		baseProvider: baseProvider{mount: "/host"},
		queue:        queue,
		now:          time.Now,
		applied:      make(map[string]int),
	}
}

func (p *HostProvider) targetPath(rel string) string {
	return "/host/" + rel
}

func (p *HostProvider) Resolve(rel string) (wire.Qid, error) {
	if rel == "" {
		return wire.Qid{Type: wire.QidDir}, nil
	}
	if strings.HasSuffix(rel, "/") || rel == "" {
		return wire.Qid{}, apperr.New(apperr.Invalid, "illegal host path %q", rel)
	}
	return wire.Qid{Type: wire.QidFile}, nil
}

func (p *HostProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	return nil, nil
}

func (p *HostProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.applied[p.targetPath(rel)]
	return bytesSlice([]byte(jsonInt(n)), offset, count), nil
}

// Write decodes the approval envelope, consumes the matching queued record
// against this exact target, and records the command as applied exactly
// once per successful consume.
func (p *HostProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	var cmd hostCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return 0, apperr.Wrap(apperr.Invalid, err, "invalid host command")
	}
	target := p.targetPath(rel)
	if err := p.queue.Consume(cmd.ApprovalID, target, p.now()); err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.applied[target]++
	p.mu.Unlock()
	return uint32(len(data)), nil
}

func jsonInt(n int) string {
	b, _ := json.Marshal(map[string]int{"applied": n})
	return string(b)
}
