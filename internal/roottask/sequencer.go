package roottask

import (
	"fmt"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// Phase enumerates the bootstrap sequencer's fixed, strictly ordered steps
// (spec §4.10).
type Phase int

const (
	PhaseCSpaceCanonicalise Phase = iota
	PhaseBootInfoValidate
	PhaseMemoryLayoutBuild
	PhaseCSpaceRecord
	PhaseIPCInstall
	PhaseUntypedPlan
	PhaseRetypeCommit
	PhaseUserlandHandoff
	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseCSpaceCanonicalise:
		return "cspace_canonicalise"
	case PhaseBootInfoValidate:
		return "bootinfo_validate"
	case PhaseMemoryLayoutBuild:
		return "memory_layout_build"
	case PhaseCSpaceRecord:
		return "cspace_record"
	case PhaseIPCInstall:
		return "ipc_install"
	case PhaseUntypedPlan:
		return "untyped_plan"
	case PhaseRetypeCommit:
		return "retype_commit"
	case PhaseUserlandHandoff:
		return "userland_handoff"
	default:
		return "unknown"
	}
}

// Breadcrumb emits a single UART boot-log line. Implementations must never
// block indefinitely; the sequencer calls it synchronously between phases.
type Breadcrumb func(line string)

// Sequencer drives the fixed 8-phase bootstrap sequence over a single
// RunStateGuard, rejecting any attempt to run phases out of order or to
// resume past a terminal state (spec §4.10).
type Sequencer struct {
	guard   *RunStateGuard
	crumb   Breadcrumb
	phases  [phaseCount]PhaseFunc
	next    Phase
	started bool
}

// NewSequencer builds a Sequencer over guard, emitting breadcrumbs via
// crumb. A nil crumb discards breadcrumbs.
func NewSequencer(guard *RunStateGuard, crumb Breadcrumb) *Sequencer {
	if crumb == nil {
		crumb = func(string) {}
	}
	return &Sequencer{guard: guard, crumb: crumb}
}

// Bind installs the body for phase. Every phase must be bound before Run is
// called.
func (s *Sequencer) Bind(phase Phase, fn PhaseFunc) {
	s.phases[phase] = fn
}

// Run executes every bound phase in order, entering the run-state guard on
// the first phase and committing it on success of the last. A phase body
// that returns an error, or that fails the text-pointer guard, aborts the
// whole sequence: the run-state is marked Aborted and a
// "[fail:<phase>] err=<code>" breadcrumb is emitted before the error is
// returned. Calling Run a second time is rejected by EnterOnce.
func (s *Sequencer) Run() error {
	if err := s.guard.EnterOnce(); err != nil {
		return err
	}
	s.started = true

	for phase := Phase(0); phase < phaseCount; phase++ {
		if err := s.runPhase(phase); err != nil {
			return err
		}
	}

	s.guard.MarkCommitted()
	s.crumb("[commit] boot sequence complete")
	return nil
}

func (s *Sequencer) runPhase(phase Phase) error {
	if !s.guard.PhaseMutable() {
		return apperr.New(apperr.Invalid, "phase %s attempted after terminal run-state", phase)
	}
	if phase != s.next {
		err := apperr.New(apperr.Invalid, "out-of-order phase advance: expected %s, got %s", s.next, phase)
		s.abort(phase, err)
		return err
	}

	fn := s.phases[phase]
	if err := CallChecked(fn); err != nil {
		s.abort(phase, err)
		return err
	}

	s.next = phase + 1
	s.crumb(fmt.Sprintf("[ok:%s]", phase))
	return nil
}

func (s *Sequencer) abort(phase Phase, err error) {
	s.guard.MarkAborted()
	s.crumb(fmt.Sprintf("[fail:%s] err=%s", phase, apperr.CodeOf(err)))
	logger.Error("bootstrap aborted",
		logger.Component("roottask"), logger.BootPhase(phase.String()),
		logger.RunState(s.guard.State().String()), logger.Err(err))
}

// HasStarted reports whether Run has been invoked at least once.
func (s *Sequencer) HasStarted() bool { return s.started }

// State returns the underlying run-state guard's current state, so callers
// that only hold the Sequencer (e.g. cmd/roottask) don't need a separate
// reference to the guard passed into NewSequencer.
func (s *Sequencer) State() RunState { return s.guard.State() }
