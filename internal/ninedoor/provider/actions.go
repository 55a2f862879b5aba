package provider

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/policy"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/telemetry"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const (
	actionsQueueFile       = "queue"
	defaultActionsTTL      = 15 * time.Minute
	defaultActionsCapacity = 64 << 10
)

// approvalIntake is one line accepted at /actions/queue, the operator-facing
// approval intake (spec §4.5 "/actions/queue").
type approvalIntake struct {
	ID       string `json:"id"`
	Target   string `json:"target"`
	Decision string `json:"decision"`
	TTLSec   uint64 `json:"ttl_s,omitempty"`
}

// ActionsProvider serves /actions/queue and /actions/<id>/status over a
// shared policy.Queue.
type ActionsProvider struct {
	baseProvider
	queue *policy.Queue
	log   *telemetry.Ring
	now   func() time.Time
}

// NewActionsProvider builds the /actions provider over queue.
func NewActionsProvider(queue *policy.Queue, m *Metrics) *ActionsProvider {
	return &ActionsProvider{
		baseProvider: baseProvider{mount: "/actions"},
		queue:        queue,
		log:          telemetry.NewRing("actions:queue", defaultActionsCapacity, m.telemetry()),
		now:          time.Now,
	}
}

func (p *ActionsProvider) Resolve(rel string) (wire.Qid, error) {
	switch {
	case rel == "":
		return wire.Qid{Type: wire.QidDir}, nil
	case rel == actionsQueueFile:
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	case strings.HasSuffix(rel, "/status"):
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such actions path %q", rel)
	}
}

func (p *ActionsProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if rel == actionsQueueFile && mode == session.OpenRead {
		return nil, nil
	}
	if strings.HasSuffix(rel, "/status") && mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	return nil, nil
}

func (p *ActionsProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	if rel == actionsQueueFile {
		out, err := p.log.Read(offset, count)
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	}
	id := strings.TrimSuffix(rel, "/status")
	if id == rel {
		return nil, apperr.New(apperr.NotFound, "no such actions path %q", rel)
	}
	state, ok := p.queue.Status(id, p.now())
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no such approval %q", id)
	}
	body, _ := json.Marshal(map[string]string{"state": string(state)})
	return bytesSlice(body, offset, count), nil
}

func (p *ActionsProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	if rel != actionsQueueFile {
		return 0, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	var in approvalIntake
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, apperr.Wrap(apperr.Invalid, err, "invalid approval intake")
	}
	id := in.ID
	if id == "" {
		id = policy.NewID()
	}
	ttl := defaultActionsTTL
	if in.TTLSec > 0 {
		ttl = time.Duration(in.TTLSec) * time.Second
	}
	if err := p.queue.Enqueue(id, in.Target, policy.Decision(in.Decision), ttl, p.now()); err != nil {
		return 0, err
	}

	bounds := p.log.Bounds()
	wb, err := session.AppendOnlyWriteBounds(bounds.NextOffset, offset, p.log.Capacity(), len(data))
	if err != nil {
		return 0, err
	}
	if _, err := p.log.Append(data[:wb.Len]); err != nil {
		return 0, err
	}
	return uint32(wb.Len), nil
}
