package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

func TestLogAppendAndRead(t *testing.T) {
	l := NewLog("journal", 4096, nil, nil)
	now := time.Now()

	e, err := l.Append("queen", "open", "/worker/1/lease", "allow", "", now)
	require.NoError(t, err)
	require.Equal(t, uint64(1), e.Seq)

	b := l.Bounds()
	require.Zero(t, b.BaseOffset)
	require.Positive(t, b.NextOffset)

	out, err := l.Read(0, uint32(b.NextOffset))
	require.NoError(t, err)
	require.NotEmpty(t, out.Data)
}

func TestLogEntriesPreservesOrder(t *testing.T) {
	l := NewLog("decisions", 4096, nil, nil)
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := l.Append("worker-1", "write", "/worker/1/telemetry", "allow", "", now)
		require.NoError(t, err)
	}
	entries := l.Entries()
	require.Len(t, entries, 5)
	for i, e := range entries {
		require.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestLogAppendTruncatesOldestOnOverflow(t *testing.T) {
	l := NewLog("journal", 256, nil, nil)
	now := time.Now()
	for i := 0; i < 20; i++ {
		_, err := l.Append("a", "b", "c", "allow", "", now)
		require.NoError(t, err)
	}
	b := l.Bounds()
	require.Positive(t, b.BaseOffset, "ring must have truncated oldest entries")

	entries := l.Entries()
	for _, e := range entries {
		require.True(t, e.Seq > 0)
	}
}

func TestLogReadStaleOffsetFails(t *testing.T) {
	l := NewLog("journal", 256, nil, nil)
	now := time.Now()
	for i := 0; i < 20; i++ {
		_, err := l.Append("a", "b", "c", "allow", "", now)
		require.NoError(t, err)
	}
	_, err := l.Read(0, 8)
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))
}
