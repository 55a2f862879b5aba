package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixes(t *testing.T) {
	cases := map[ErrorCode]string{
		Permission: "EPERM",
		Invalid:    "EINVAL",
		NotFound:   "ENOENT",
		Exists:     "EEXIST",
		IsDir:      "EISDIR",
		NotDir:     "ENOTDIR",
		TooBig:     "ELIMIT",
		Again:      "EAGAIN",
		IoError:    "EIO",
		NoMem:      "ENOMEM",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.Prefix())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	e1 := New(Permission, "no scope for %s", "/proc/boot")
	e2 := New(Permission, "different message entirely")
	require.True(t, errors.Is(e1, e2))

	e3 := New(Invalid, "bad offset")
	require.False(t, errors.Is(e1, e3))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(IoError, cause, "flush failed")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, IoError, CodeOf(wrapped))
}

func TestCodeOfDefaultsToIoError(t *testing.T) {
	require.Equal(t, IoError, CodeOf(errors.New("opaque")))
}

func TestIsHelper(t *testing.T) {
	err := New(TooBig, "quota exhausted")
	assert.True(t, Is(err, TooBig))
	assert.False(t, Is(err, Again))
}
