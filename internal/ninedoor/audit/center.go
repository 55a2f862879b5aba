package audit

import (
	"time"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/ninedoor/audit/badgerstore"
	"github.com/cohesix/ninedoor/internal/ninedoor/metrics"
)

// journalRingName and decisionsRingName are the fixed ring identifiers
// exposed as /audit/journal and /audit/decisions (spec §4.5, §4.8).
const (
	journalRingName   = "journal"
	decisionsRingName = "decisions"
)

// Center owns both audit rings: the general-purpose operation journal and
// the policy-decisions log. It implements policy.AuditSink, closing the
// loop spec §4.4/§4.7 require between access control and C8.
type Center struct {
	Journal   *Log
	Decisions *Log
	clock     func() time.Time
	metrics   *metrics.AuditMetrics
}

// Config bounds each ring's capacity in bytes.
type Config struct {
	JournalMaxBytes   int
	DecisionsMaxBytes int
}

// New builds a Center with independent journal/decisions rings, optionally
// backed by a shared Badger store for restart persistence.
func New(cfg Config, store *badgerstore.Store, m *metrics.AuditMetrics) *Center {
	return &Center{
		Journal:   NewLog(journalRingName, cfg.JournalMaxBytes, store, m),
		Decisions: NewLog(decisionsRingName, cfg.DecisionsMaxBytes, store, m),
		clock:     time.Now,
		metrics:   m,
	}
}

// Restore replays both rings from the Badger store at boot.
func (c *Center) Restore() error {
	if err := c.Journal.Restore(); err != nil {
		return err
	}
	if err := c.Decisions.Restore(); err != nil {
		return err
	}
	jb := c.Journal.Bounds()
	db := c.Decisions.Bounds()
	logger.Info("audit rings restored",
		logger.Component("audit"),
		logger.Ring(journalRingName), logger.BaseOffset(jb.BaseOffset), logger.NextOffset(jb.NextOffset))
	logger.Debug("decisions ring restored",
		logger.Component("audit"),
		logger.Ring(decisionsRingName), logger.BaseOffset(db.BaseOffset), logger.NextOffset(db.NextOffset))
	return nil
}

// RecordAccessDecision implements policy.AuditSink by appending a decisions
// entry; errors are swallowed here since a failed audit append must never
// block the policy decision it is recording (the ring rejects only
// oversize single appends, which a fixed-shape decision line never is).
func (c *Center) RecordAccessDecision(actor, verb, target, outcome string) {
	_, _ = c.Decisions.Append(actor, verb, target, outcome, "", c.clock())
}

// RecordOperation appends a general operation line to the journal, used by
// the event pump (C11) around every dispatched request (spec §4.11 step 2
// "Dispatch to the session's handler; append audit; produce one response").
func (c *Center) RecordOperation(actor, verb, target, outcome, detail string) (Entry, error) {
	return c.Journal.Append(actor, verb, target, outcome, detail, c.clock())
}

// Replay replays the journal from offset, backing /replay/ctl + /replay/status.
func (c *Center) Replay(from uint64) (ReplayResult, error) {
	result, err := c.Journal.ReplayFrom(from)
	c.metrics.RecordReplay(result.Entries)
	return result, err
}
