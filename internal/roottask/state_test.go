package roottask

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func TestRunStateGuardEnterOnceSucceedsFromCold(t *testing.T) {
	g := NewRunStateGuard()
	require.Equal(t, Cold, g.State())
	require.NoError(t, g.EnterOnce())
	require.Equal(t, Running, g.State())
}

func TestRunStateGuardEnterOnceRejectsReentry(t *testing.T) {
	g := NewRunStateGuard()
	require.NoError(t, g.EnterOnce())
	err := g.EnterOnce()
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))
}

func TestRunStateGuardPhaseMutableGoesFalseAtTerminal(t *testing.T) {
	g := NewRunStateGuard()
	require.NoError(t, g.EnterOnce())
	require.True(t, g.PhaseMutable())
	g.MarkCommitted()
	require.False(t, g.PhaseMutable())

	g2 := NewRunStateGuard()
	require.NoError(t, g2.EnterOnce())
	g2.MarkAborted()
	require.False(t, g2.PhaseMutable())
}
