package session

import "time"

// Phase is the explicit session lifecycle state for /proc/9p/session/*,
// ported from original_source/apps/nine-door/src/host/session.rs.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseActive
	PhaseDraining
	PhaseClosed
)

// String renders the canonical wire state label.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "SETUP"
	case PhaseActive:
		return "ACTIVE"
	case PhaseDraining:
		return "DRAINING"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// GlobalLifecycleState is the process-wide state consulted by
// RefreshForLifecycle (mirrors internal/ninedoor/provider's lifecycle enum,
// duplicated here as a narrow type to avoid an import cycle).
type GlobalLifecycleState int

const (
	GlobalOnline GlobalLifecycleState = iota
	GlobalDraining
	GlobalQuiesced
)

// Lifecycle tracks one session's phase and the owning ticket subject/role
// label, exactly as SessionLifecycle does in the original.
type Lifecycle struct {
	phase Phase
	since time.Time
	owner string
}

// NewLifecycle builds a Lifecycle starting in Setup.
func NewLifecycle(now time.Time) *Lifecycle {
	return &Lifecycle{phase: PhaseSetup, since: now}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase { return l.phase }

// Owner returns the attached owner label, if any.
func (l *Lifecycle) Owner() string { return l.owner }

// SinceMs returns elapsed milliseconds since the phase began.
func (l *Lifecycle) SinceMs(now time.Time) int64 { return now.Sub(l.since).Milliseconds() }

// MarkActive transitions Setup -> Active on successful Attach. A Closed
// session cannot be reactivated.
func (l *Lifecycle) MarkActive(now time.Time, owner string) {
	if l.phase == PhaseClosed {
		return
	}
	l.phase = PhaseActive
	l.since = now
	if owner != "" {
		l.owner = owner
	}
}

// MarkClosed transitions to Closed, idempotently.
func (l *Lifecycle) MarkClosed(now time.Time) {
	if l.phase == PhaseClosed {
		return
	}
	l.phase = PhaseClosed
	l.since = now
}

// RefreshForLifecycle flips Active<->Draining in lockstep with the
// process-wide LifecycleState entering/leaving Draining (spec SPEC_FULL.md
// "Session lifecycle refresh tied to process lifecycle"). Setup and Closed
// sessions are untouched.
func (l *Lifecycle) RefreshForLifecycle(state GlobalLifecycleState, now time.Time) {
	if l.phase == PhaseClosed || l.phase == PhaseSetup {
		return
	}
	draining := state == GlobalDraining
	switch {
	case l.phase == PhaseActive && draining:
		l.phase = PhaseDraining
		l.since = now
	case l.phase == PhaseDraining && !draining:
		l.phase = PhaseActive
		l.since = now
	}
}
