// Package roottask implements C10: the single-shot bootstrap sequencer that
// stands up the Secure9P server on its host capability system, carving
// initial capabilities and validating the kernel-provided boot record
// before handing control to userland. Grounded on
// original_source/apps/root-task/src/bootstrap/{state,ffi}.rs, cspace.rs,
// and guards.rs.
package roottask

import (
	"sync/atomic"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// RunState is the process-wide bootstrap run-state (spec §4.10), ported
// from bootstrap/state.rs's BootstrapRunState.
type RunState uint32

const (
	Cold RunState = iota
	Running
	Committed
	Aborted
)

// Label renders the lowercase state name used in UART breadcrumbs.
func (s RunState) Label() string {
	switch s {
	case Running:
		return "running"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "cold"
	}
}

func (s RunState) String() string { return s.Label() }

// RunStateGuard owns the process-wide atomic run-state and its single-shot
// re-entry guard, mirroring the Rust module's static atomics. The package
// keeps no global instance; each NewRunStateGuard call builds a fresh one.
type RunStateGuard struct {
	attempted atomic.Bool
	state     atomic.Uint32
}

// NewRunStateGuard builds a fresh guard starting Cold.
func NewRunStateGuard() *RunStateGuard {
	return &RunStateGuard{}
}

// State returns the current run-state.
func (g *RunStateGuard) State() RunState {
	return RunState(g.state.Load())
}

// EnterOnce transitions Cold -> Running exactly once; a second call, from
// any state, fails with the state observed at the time of the re-entry
// attempt (spec §4.10 "MUST NOT move back").
func (g *RunStateGuard) EnterOnce() error {
	alreadyAttempted := g.attempted.Swap(true)
	now := g.State()
	if alreadyAttempted || now != Cold {
		return apperr.New(apperr.Invalid, "bootstrap re-entry blocked: state=%s", now)
	}
	g.state.Store(uint32(Running))
	return nil
}

// MarkAborted sets the terminal Aborted state.
func (g *RunStateGuard) MarkAborted() {
	g.state.Store(uint32(Aborted))
}

// MarkCommitted sets the terminal Committed state.
func (g *RunStateGuard) MarkCommitted() {
	g.state.Store(uint32(Committed))
}

// PhaseMutable reports whether phase transitions remain permitted: false
// once the run-state has reached either terminal state.
func (g *RunStateGuard) PhaseMutable() bool {
	switch g.State() {
	case Committed, Aborted:
		return false
	default:
		return true
	}
}
