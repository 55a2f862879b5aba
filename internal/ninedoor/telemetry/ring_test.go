package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

func TestRingAppendAndReadRoundTrip(t *testing.T) {
	r := NewRing("worker-1", 16, nil)
	out, err := r.Append([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, uint32(5), out.Count)
	require.Zero(t, out.DroppedBytes)

	rd, err := r.Read(0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), rd.Data)
	require.False(t, rd.Short)
}

func TestRingAppendWrapsAndDropsOldest(t *testing.T) {
	r := NewRing("worker-1", 8, nil)
	_, err := r.Append([]byte("abcdefgh"))
	require.NoError(t, err)

	out, err := r.Append([]byte("XY"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), out.DroppedBytes)

	b := r.Bounds()
	require.Equal(t, uint64(2), b.BaseOffset)
	require.Equal(t, uint64(10), b.NextOffset)

	rd, err := r.Read(2, 8)
	require.NoError(t, err)
	require.Equal(t, []byte("cdefghXY"), rd.Data)
}

func TestRingAppendRejectsOversize(t *testing.T) {
	r := NewRing("worker-1", 4, nil)
	_, err := r.Append([]byte("toolong"))
	require.Error(t, err)
	require.Equal(t, apperr.TooBig, apperr.CodeOf(err))
}

func TestRingReadRejectsStaleOffset(t *testing.T) {
	r := NewRing("worker-1", 4, nil)
	_, _ = r.Append([]byte("abcd"))
	_, _ = r.Append([]byte("efgh"))

	_, err := r.Read(0, 4)
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))
}

func TestRingReadClampsBeyondTail(t *testing.T) {
	r := NewRing("worker-1", 8, nil)
	_, _ = r.Append([]byte("abcd"))

	rd, err := r.Read(100, 4)
	require.NoError(t, err)
	require.Empty(t, rd.Data)
	require.True(t, rd.Short)
}

func TestRingReadShortWhenLessAvailable(t *testing.T) {
	r := NewRing("worker-1", 16, nil)
	_, _ = r.Append([]byte("abc"))

	rd, err := r.Read(0, 10)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), rd.Data)
	require.True(t, rd.Short)
}
