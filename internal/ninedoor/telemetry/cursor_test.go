package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorResolveFreshStartsAtBase(t *testing.T) {
	c := NewCursor(false, 1024)
	res, err := c.Resolve(50, Bounds{BaseOffset: 50, NextOffset: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(50), res.Offset)
	require.Nil(t, res.Audit)
}

func TestCursorResolveStaleBelowBase(t *testing.T) {
	c := NewCursor(false, 1024)
	_, err := c.Resolve(10, Bounds{BaseOffset: 50, NextOffset: 100})
	require.Error(t, err)
	var cerr *CursorError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, uint64(10), cerr.Requested)
	require.Equal(t, AuditWarn, cerr.Audit.Level)
}

func TestCursorResolveRewindWithinBoundsSucceeds(t *testing.T) {
	c := NewCursor(false, 1024)
	c.Advance(80)
	res, err := c.Resolve(60, Bounds{BaseOffset: 50, NextOffset: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(60), res.Offset)
	require.NotNil(t, res.Audit)
	require.Equal(t, AuditInfo, res.Audit.Level)
}

func TestCursorResolveRewindExceedsMax(t *testing.T) {
	c := NewCursor(false, 16)
	c.Advance(80)
	_, err := c.Resolve(10, Bounds{BaseOffset: 0, NextOffset: 100})
	require.Error(t, err)
	var cerr *CursorError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, uint64(80), cerr.LastKnown)
}

func TestCursorResolveClampsBeyondTail(t *testing.T) {
	c := NewCursor(false, 1024)
	res, err := c.Resolve(500, Bounds{BaseOffset: 0, NextOffset: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(100), res.Offset)
	require.NotNil(t, res.Audit)
	require.Equal(t, AuditInfo, res.Audit.Level)
}

func TestCursorRestoreLastOffsetOnlyWithinBounds(t *testing.T) {
	c := NewCursor(true, 1024)
	stale := uint64(5)
	c.RestoreLastOffset(&stale, 50, 100)
	_, have := c.Snapshot()
	require.False(t, have, "offset below base_offset must not be restored")

	ok := uint64(70)
	c.RestoreLastOffset(&ok, 50, 100)
	got, have := c.Snapshot()
	require.True(t, have)
	require.Equal(t, uint64(70), got)
}

func TestCursorAdvanceUpdatesSnapshot(t *testing.T) {
	c := NewCursor(false, 1024)
	c.Advance(42)
	got, have := c.Snapshot()
	require.True(t, have)
	require.Equal(t, uint64(42), got)
}
