package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

func TestAppendOnlyReadBoundsStale(t *testing.T) {
	_, err := AppendOnlyReadBounds(5, 10, 20, 4)
	require.Error(t, err)
}

func TestAppendOnlyReadBoundsClampsToAvailable(t *testing.T) {
	b, err := AppendOnlyReadBounds(10, 5, 15, 100)
	require.NoError(t, err)
	require.Equal(t, 5, b.Len)
	require.True(t, b.Short)
}

func TestAppendOnlyWriteBoundsRejectsWrongOffset(t *testing.T) {
	_, err := AppendOnlyWriteBounds(100, 0, 1024, 10)
	require.Error(t, err)
}

func TestAppendOnlyWriteBoundsAcceptsSentinel(t *testing.T) {
	b, err := AppendOnlyWriteBounds(100, ^uint64(0), 1024, 10)
	require.NoError(t, err)
	require.Equal(t, 10, b.Len)
	require.False(t, b.Short)
}

func TestFidTableAllocResolveFree(t *testing.T) {
	ft := NewFidTable(4)
	require.NoError(t, ft.Alloc(1, "root", wire.Qid{Type: wire.QidDir}))
	e, ok := ft.Resolve(1)
	require.True(t, ok)
	require.Equal(t, "root", e.Node)

	err := ft.Alloc(1, "dup", wire.Qid{})
	require.Error(t, err)

	ft.Free(1)
	_, ok = ft.Resolve(1)
	require.False(t, ok)
}

func TestFidTableWalkAtomicOnFailure(t *testing.T) {
	ft := NewFidTable(4)
	require.NoError(t, ft.Alloc(1, "root", wire.Qid{Type: wire.QidDir}))

	failErr := ft.Walk(1, 2, func(cur *Entry, wnames []string) (any, wire.Qid, error) {
		return nil, wire.Qid{}, errBoom
	}, []string{"missing"})
	require.Error(t, failErr)
	_, ok := ft.Resolve(2)
	require.False(t, ok, "newfid must not appear when walk fails")
}

func TestFidTableWalkSucceeds(t *testing.T) {
	ft := NewFidTable(4)
	require.NoError(t, ft.Alloc(1, "root", wire.Qid{Type: wire.QidDir}))

	err := ft.Walk(1, 2, func(cur *Entry, wnames []string) (any, wire.Qid, error) {
		return "worker-1", wire.Qid{Type: wire.QidDir, Path: 7}, nil
	}, []string{"worker", "worker-1"})
	require.NoError(t, err)

	e, ok := ft.Resolve(2)
	require.True(t, ok)
	require.Equal(t, "worker-1", e.Node)
}

func TestTagWindowLimit(t *testing.T) {
	w := NewTagWindow(2)
	require.NoError(t, w.Acquire(1))
	require.NoError(t, w.Acquire(2))
	require.Error(t, w.Acquire(3))
	w.Release(1)
	require.NoError(t, w.Acquire(3))
}

func TestQueueDepthLimit(t *testing.T) {
	q := NewQueueDepth(1)
	require.True(t, q.TryEnter())
	require.False(t, q.TryEnter())
	q.Leave()
	require.True(t, q.TryEnter())
}

func TestLifecycleRefresh(t *testing.T) {
	now := time.Now()
	l := NewLifecycle(now)
	l.MarkActive(now, "queen")
	require.Equal(t, PhaseActive, l.Phase())

	l.RefreshForLifecycle(GlobalDraining, now.Add(time.Second))
	require.Equal(t, PhaseDraining, l.Phase())

	l.RefreshForLifecycle(GlobalOnline, now.Add(2*time.Second))
	require.Equal(t, PhaseActive, l.Phase())
}

func TestLifecycleSetupAndClosedUntouched(t *testing.T) {
	now := time.Now()
	l := NewLifecycle(now)
	l.RefreshForLifecycle(GlobalDraining, now)
	require.Equal(t, PhaseSetup, l.Phase())

	l.MarkActive(now, "queen")
	l.MarkClosed(now)
	l.RefreshForLifecycle(GlobalDraining, now)
	require.Equal(t, PhaseClosed, l.Phase())
}

func TestSessionAttachRequiresSetup(t *testing.T) {
	limits, err := NewLimits(8192, 128, 32, DefaultShortWritePolicy())
	require.NoError(t, err)
	now := time.Now()
	s := New(limits, 16, 64, now)

	require.NoError(t, s.Attach(ticket.Claims{Role: ticket.RoleQueen}, now))
	require.Error(t, s.Attach(ticket.Claims{Role: ticket.RoleQueen}, now))
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
