package provider

import (
	"encoding/json"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

const (
	auditJournalFile   = "journal"
	auditDecisionsFile = "decisions"
	auditExportFile    = "export"
)

// auditExport is the /audit/export snapshot: just offsets, per spec §4.5
// "JSON snapshot of journal offsets for external tooling".
type auditExport struct {
	JournalBase uint64 `json:"journal_base"`
	JournalNext uint64 `json:"journal_next"`
	DecisionsBase uint64 `json:"decisions_base"`
	DecisionsNext uint64 `json:"decisions_next"`
}

// AuditFsProvider serves /audit/{journal,decisions,export}, all read-only
// from a client's perspective: entries are written only by the server
// itself via the pump and policy layers (spec §4.8).
type AuditFsProvider struct {
	baseProvider
	center *audit.Center
}

// NewAuditFsProvider builds the /audit provider over center.
func NewAuditFsProvider(center *audit.Center) *AuditFsProvider {
	return &AuditFsProvider{baseProvider: baseProvider{mount: "/audit"}, center: center}
}

func (p *AuditFsProvider) Resolve(rel string) (wire.Qid, error) {
	switch rel {
	case "":
		return wire.Qid{Type: wire.QidDir}, nil
	case auditJournalFile, auditDecisionsFile:
		return wire.Qid{Type: wire.QidAppendOnly}, nil
	case auditExportFile:
		return wire.Qid{Type: wire.QidFile}, nil
	default:
		return wire.Qid{}, apperr.New(apperr.NotFound, "no such audit path %q", rel)
	}
}

func (p *AuditFsProvider) Open(rel string, mode session.OpenMode, actor Actor) (Handle, error) {
	if mode != session.OpenRead {
		return nil, apperr.New(apperr.Permission, "audit entries are written by the server only")
	}
	if rel != auditJournalFile && rel != auditDecisionsFile && rel != auditExportFile {
		return nil, apperr.New(apperr.NotFound, "no such audit path %q", rel)
	}
	return nil, nil
}

func (p *AuditFsProvider) Read(rel string, h Handle, offset uint64, count uint32) ([]byte, error) {
	switch rel {
	case auditJournalFile:
		out, err := p.center.Journal.Read(offset, count)
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	case auditDecisionsFile:
		out, err := p.center.Decisions.Read(offset, count)
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	case auditExportFile:
		jb := p.center.Journal.Bounds()
		db := p.center.Decisions.Bounds()
		body, err := json.Marshal(auditExport{
			JournalBase: jb.BaseOffset, JournalNext: jb.NextOffset,
			DecisionsBase: db.BaseOffset, DecisionsNext: db.NextOffset,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.IoError, err, "encode audit export")
		}
		return bytesSlice(body, offset, count), nil
	default:
		return nil, apperr.New(apperr.NotFound, "no such audit path %q", rel)
	}
}

// Write always fails Permission: audit entries are appended only by the
// pump/policy layers calling audit.Center directly, never by client writes
// (spec §4.8 "/audit/* writes from clients fail Permission").
func (p *AuditFsProvider) Write(rel string, h Handle, offset uint64, data []byte, actor Actor) (uint32, error) {
	return 0, apperr.New(apperr.Permission, "%q is written by the server only", rel)
}
