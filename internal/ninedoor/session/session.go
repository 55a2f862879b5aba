package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
)

// PipelineMetrics tracks per-session backpressure and short-write accounting
// (SPEC_FULL.md "Pipeline short-write retry accounting", grounded on
// original_source/apps/nine-door/src/host/pipeline.rs). The /proc/pressure/*
// and /proc/ingest/* providers do not read it, and QueueDepth is not updated.
type PipelineMetrics struct {
	QueueDepth         int
	QueueLimit         int
	BackpressureEvents uint64
	ShortWrites        uint64
	ShortWriteRetries  uint64
}

// Session owns a fid table and tag window exclusively; both are destroyed
// with the session. It holds only identifiers into provider state, never
// back-references (spec §3 Session, §9 "Cyclic references").
type Session struct {
	ID        string
	Limits    Limits
	Fids      *FidTable
	Tags      *TagWindow
	Queue     *QueueDepth
	Lifecycle *Lifecycle
	Claims    *ticket.Claims

	Metrics PipelineMetrics
}

// New builds a Setup-phase session with no bound ticket; Attach binds
// Claims and calls MarkActive.
func New(limits Limits, fidShards, queueDepthLimit int, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Limits:    limits,
		Fids:      NewFidTable(fidShards),
		Tags:      NewTagWindow(limits.TagsPerSession),
		Queue:     NewQueueDepth(queueDepthLimit),
		Lifecycle: NewLifecycle(now),
		Metrics:   PipelineMetrics{QueueLimit: queueDepthLimit},
	}
}

// Attach binds claims to the session and transitions Setup -> Active.
// Version must have already run (the caller constructs Limits from the
// negotiated Version request before calling Attach).
func (s *Session) Attach(claims ticket.Claims, now time.Time) error {
	if s.Lifecycle.Phase() != PhaseSetup {
		return apperr.New(apperr.Invalid, "attach requires Setup phase, session is %s", s.Lifecycle.Phase())
	}
	s.Claims = &claims
	owner := claims.Subject
	if owner == "" {
		owner = string(claims.Role)
	}
	s.Lifecycle.MarkActive(now, owner)
	return nil
}

// Close releases the session's fid table and tag window synchronously and
// marks the session Closed (spec §4.11 "Cancellation is cooperative").
func (s *Session) Close(now time.Time) {
	s.Fids = NewFidTable(1)
	s.Tags = NewTagWindow(s.Limits.TagsPerSession)
	s.Lifecycle.MarkClosed(now)
}

// RecordShortWrite updates pipeline metrics for one short-write occurrence,
// optionally counting a retry attempt.
func (s *Session) RecordShortWrite(retried bool) {
	s.Metrics.ShortWrites++
	if retried {
		s.Metrics.ShortWriteRetries++
	}
}

// RecordBackpressure increments the backpressure counter when QueueDepth
// refuses admission.
func (s *Session) RecordBackpressure() {
	s.Metrics.BackpressureEvents++
}
