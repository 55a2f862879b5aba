package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReplayFromDeterministicHash(t *testing.T) {
	l := NewLog("journal", 4096, nil, nil)
	now := time.Now()
	_, err := l.Append("queen", "ctl", "/worker/1", "allow", "", now)
	require.NoError(t, err)
	_, err = l.Append("worker-1", "write", "/worker/1/telemetry", "deny", "", now)
	require.NoError(t, err)

	r1, err := l.ReplayFrom(0)
	require.NoError(t, err)
	r2, err := l.ReplayFrom(0)
	require.NoError(t, err)

	require.Equal(t, r1.SequenceFNV1a, r2.SequenceFNV1a, "replay hash must be stable for a fixed sequence")
	require.Equal(t, 2, r1.Entries)
}

func TestReplayFromRejectsOffsetOutsideBounds(t *testing.T) {
	l := NewLog("journal", 4096, nil, nil)
	_, err := l.ReplayFrom(9999)
	require.Error(t, err)
}

func TestReplayFromSkipsEntriesBeforeOffset(t *testing.T) {
	l := NewLog("journal", 4096, nil, nil)
	now := time.Now()
	_, err := l.Append("queen", "ctl", "/worker/1", "allow", "", now)
	require.NoError(t, err)
	mid := l.Bounds().NextOffset
	_, err = l.Append("queen", "ctl", "/worker/2", "allow", "", now)
	require.NoError(t, err)

	r, err := l.ReplayFrom(mid)
	require.NoError(t, err)
	require.Equal(t, 1, r.Entries)
}
