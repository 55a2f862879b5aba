package roottask

import (
	"strings"
	"testing"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func bindAllNoop(s *Sequencer) {
	for p := Phase(0); p < phaseCount; p++ {
		s.Bind(p, func() error { return nil })
	}
}

func TestSequencerRunsAllPhasesInOrderAndCommits(t *testing.T) {
	guard := NewRunStateGuard()
	var crumbs []string
	s := NewSequencer(guard, func(line string) { crumbs = append(crumbs, line) })
	bindAllNoop(s)

	require.NoError(t, s.Run())
	require.Equal(t, Committed, guard.State())
	require.Len(t, crumbs, int(phaseCount)+1)
	require.True(t, strings.HasPrefix(crumbs[0], "[ok:cspace_canonicalise]"))
	require.Equal(t, "[commit] boot sequence complete", crumbs[len(crumbs)-1])
}

func TestSequencerAbortsAndMarksStateOnPhaseFailure(t *testing.T) {
	guard := NewRunStateGuard()
	var crumbs []string
	s := NewSequencer(guard, func(line string) { crumbs = append(crumbs, line) })
	bindAllNoop(s)
	s.Bind(PhaseUntypedPlan, func() error { return apperr.New(apperr.NoMem, "no device untyped") })

	err := s.Run()
	require.Error(t, err)
	require.Equal(t, Aborted, guard.State())
	require.Contains(t, crumbs[len(crumbs)-1], "[fail:untyped_plan]")
	require.Contains(t, crumbs[len(crumbs)-1], "NoMem")
}

func TestSequencerRejectsNilPhaseBody(t *testing.T) {
	guard := NewRunStateGuard()
	s := NewSequencer(guard, nil)
	// leave every phase unbound
	err := s.Run()
	require.Error(t, err)
	require.Equal(t, Aborted, guard.State())
}

func TestSequencerRunTwiceRejectedByEnterOnce(t *testing.T) {
	guard := NewRunStateGuard()
	s := NewSequencer(guard, nil)
	bindAllNoop(s)
	require.NoError(t, s.Run())

	s2 := NewSequencer(guard, nil)
	bindAllNoop(s2)
	err := s2.Run()
	require.Error(t, err)
}
