package policy

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// ApprovalState is the single-use lifecycle of an ApprovalRecord (spec §4.7).
type ApprovalState string

const (
	ApprovalQueued   ApprovalState = "queued"
	ApprovalConsumed ApprovalState = "consumed"
	ApprovalExpired  ApprovalState = "expired"
)

// Decision is the operator's verdict recorded at enqueue time.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// ApprovalRecord unlocks one gated operation at most once.
type ApprovalRecord struct {
	ID       string
	Target   string
	Decision Decision
	IssuedTS time.Time
	TTL      time.Duration
	state    ApprovalState
}

// State returns the record's current lifecycle state, resolving expiry
// lazily against the wall clock (an expired-but-unconsumed record reports
// Expired even before any explicit sweep runs).
func (r *ApprovalRecord) State(now time.Time) ApprovalState {
	if r.state == ApprovalQueued && r.TTL > 0 && now.After(r.IssuedTS.Add(r.TTL)) {
		return ApprovalExpired
	}
	return r.state
}

// Queue owns process-wide approval records, gating host writes and
// policy-marked targets (spec §4.7).
type Queue struct {
	mu      sync.Mutex
	records map[string]*ApprovalRecord
	rules   *RuleSet
	audit   AuditSink
}

// NewQueue builds an approval Queue gated by rules.
func NewQueue(rules *RuleSet, audit AuditSink) *Queue {
	return &Queue{records: make(map[string]*ApprovalRecord), rules: rules, audit: audit}
}

// Enqueue admits a new approval record in the Queued state. A duplicate id
// replaces the prior record only if it is not itself Queued (re-enqueuing a
// live approval is rejected to avoid silently extending its window).
func (q *Queue) Enqueue(id, target string, decision Decision, ttl time.Duration, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.records[id]; ok && existing.State(now) == ApprovalQueued {
		return apperr.New(apperr.Invalid, "approval %q already queued", id)
	}
	q.records[id] = &ApprovalRecord{
		ID:       id,
		Target:   target,
		Decision: decision,
		IssuedTS: now,
		TTL:      ttl,
		state:    ApprovalQueued,
	}
	return nil
}

// NewID generates a fresh approval id for callers that don't supply one.
func NewID() string { return uuid.NewString() }

// Consume atomically gates target against a required id: the record must
// exist, be Queued at call time, approve the target, and target must equal
// the record's own target. On success the record flips to Consumed exactly
// once; any subsequent call denies (spec §4.7 "single-use").
func (q *Queue) Consume(id, target string, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return apperr.New(apperr.Permission, "no approval %q", id)
	}
	switch rec.State(now) {
	case ApprovalConsumed:
		return apperr.New(apperr.Permission, "approval %q already consumed", id)
	case ApprovalExpired:
		return apperr.New(apperr.Permission, "approval %q expired", id)
	}
	if rec.Target != target {
		return apperr.New(apperr.Permission, "approval %q does not cover %q", id, target)
	}
	if rec.Decision != DecisionApprove {
		rec.state = ApprovalConsumed
		return apperr.New(apperr.Permission, "approval %q denied", id)
	}
	rec.state = ApprovalConsumed
	return nil
}

// Status returns a record's state for /actions/<id>/status, deduplicated
// per approval id.
func (q *Queue) Status(id string, now time.Time) (ApprovalState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return "", false
	}
	return rec.State(now), true
}

// IsGated reports whether target requires an approval under the loaded
// rule set. It is a read-only rule lookup and does not consult or consume
// any approval record; callers that need an approval call Consume.
func (q *Queue) IsGated(target string) bool {
	if q.rules == nil {
		return false
	}
	_, gated := q.rules.Gated(target)
	return gated
}
