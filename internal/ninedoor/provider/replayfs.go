package provider

import (
	"encoding/json"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const (
	replayCtlFile    = "ctl"
	replayStatusFile = "status"
)

// replayRequest is the single accepted /replay/ctl write (spec §4.5/§4.8).
type replayRequest struct {
	From uint64 `json:"from"`
}

// replayStatus renders /replay/status's JSON body.
type replayStatus struct {
	State         string `json:"state"`
	Entries       int    `json:"entries"`
	SequenceFNV1a string `json:"sequence_fnv1a"`
}

// ReplayFsProvider serves /replay/{ctl,status} over an audit.Center's
// journal.
type ReplayFsProvider struct {
	baseProvider
	center *audit.Center

	mu   sync.Mutex
	last replayStatus
}

// NewReplayFsProvider builds the /replay provider, starting idle.
func NewReplayFsProvider(center *audit.Center) *ReplayFsProvider {
	return &ReplayFsProvider{
		baseProvider: baseProvider{mount: "/replay"},
		center:       center,
		last:         replayStatus{State: string(audit.ReplayIdle)},
	}
}

func (p *ReplayFsProvider) Resolve(rel string) (wire.Qid, error) {
	switch rel {
	case "":
		return wire.Qid{Type: wire.QidDir}, nil
	case replayCtlFile, replayStatusFile:
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such replay path %q", rel)
	}
}

func (p *ReplayFsProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if rel == replayCtlFile && mode == session.OpenRead {
		return nil, apperr.New(apperr.Permission, "%q is write-only", rel)
	}
	if rel == replayStatusFile && mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	return nil, nil
}

func (p *ReplayFsProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	if rel != replayStatusFile {
		return nil, apperr.New(apperr.NotFound, "no such replay path %q", rel)
	}
	p.mu.Lock()
	body, err := json.Marshal(p.last)
	p.mu.Unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.IoError, err, "encode replay status")
	}
	return bytesSlice(body, offset, count), nil
}

func (p *ReplayFsProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	if rel != replayCtlFile {
		return 0, apperr.New(apperr.Permission, "%q is read-only", rel)
	}
	var req replayRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, apperr.Wrap(apperr.Invalid, err, "invalid replay request")
	}

	result, err := p.center.Replay(req.From)
	p.mu.Lock()
	p.last = replayStatus{State: string(result.State), Entries: result.Entries, SequenceFNV1a: result.SequenceFNV1a}
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return uint32(len(data)), nil
}
