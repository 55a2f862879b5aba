// Package provider implements C5: the tree of virtual namespaces the
// Secure9P server exposes (/log, /queen, /worker/*, /gpu/*, /host/*,
// /policy, /actions, /audit, /replay, /proc, /bus/*, /updates/*), grounded
// on spec §4.5 and original_source/apps/nine-door/src/control.rs for the
// strict-decode queen command style.
package provider

import (
	"sync"
	"time"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/cohesix/ninedoor/internal/ninedoor/session"
)

// LifecycleState is the process-wide enum from spec §3, distinct from
// session.Lifecycle's per-session phase.
type LifecycleState int

const (
	Online LifecycleState = iota
	Draining
	Quiesced
)

func (s LifecycleState) String() string {
	switch s {
	case Online:
		return "online"
	case Draining:
		return "draining"
	case Quiesced:
		return "quiesced"
	default:
		return "unknown"
	}
}

// Lifecycle owns the process-wide LifecycleState and its valid transition
// matrix (Online <-> Draining, Draining <-> Quiesced); invalid commands
// fail with Invalid (spec §3 LifecycleState).
type Lifecycle struct {
	mu     sync.Mutex
	state  LifecycleState
	since  time.Time
	reason string
}

// NewLifecycle builds a Lifecycle starting Online.
func NewLifecycle(now time.Time) *Lifecycle {
	return &Lifecycle{state: Online, since: now}
}

// Snapshot returns the current state, the reason for the last transition,
// and how long it has held, for /proc/lifecycle/*.
func (l *Lifecycle) Snapshot(now time.Time) (LifecycleState, string, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.reason, now.Sub(l.since)
}

// State returns just the current state, used by AsSessionState.
func (l *Lifecycle) State() LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// AsSessionState converts the process-wide LifecycleState into the narrow
// type session.Lifecycle.RefreshForLifecycle consumes, avoiding an import
// cycle between the two packages.
func (l *Lifecycle) AsSessionState() session.GlobalLifecycleState {
	switch l.State() {
	case Draining:
		return session.GlobalDraining
	case Quiesced:
		return session.GlobalQuiesced
	default:
		return session.GlobalOnline
	}
}

// Apply validates and performs a command line from /queen/lifecycle/ctl:
// cordon -> Draining, drain -> Draining, resume -> Online. "quiesce" moves
// Draining -> Quiesced and is only valid from Draining.
func (l *Lifecycle) Apply(command, reason string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ok := l.transition(command)
	if !ok {
		return apperr.New(apperr.Invalid, "illegal lifecycle command %q from state %s", command, l.state)
	}
	l.state = next
	l.reason = reason
	l.since = now
	return nil
}

func (l *Lifecycle) transition(command string) (LifecycleState, bool) {
	switch command {
	case "cordon", "drain":
		if l.state == Online {
			return Draining, true
		}
	case "resume":
		if l.state == Draining {
			return Online, true
		}
	case "quiesce":
		if l.state == Draining {
			return Quiesced, true
		}
	case "unquiesce":
		if l.state == Quiesced {
			return Draining, true
		}
	}
	return l.state, false
}
