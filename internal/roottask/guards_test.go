package roottask

import (
	"testing"
	"unsafe"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func TestIsTextPtrAcceptsNamedFunction(t *testing.T) {
	fn := func() error { return nil }
	require.True(t, IsTextPtr(fn))
}

func TestIsTextPtrRejectsNil(t *testing.T) {
	require.False(t, IsTextPtr(nil))
}

func TestCallCheckedRunsValidTarget(t *testing.T) {
	called := false
	err := CallChecked(func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestCallCheckedRejectsNilTarget(t *testing.T) {
	err := CallChecked(nil)
	require.Error(t, err)
	require.Equal(t, apperr.Permission, apperr.CodeOf(err))
}

func TestCallCheckedPropagatesBodyError(t *testing.T) {
	want := apperr.New(apperr.Invalid, "boom")
	err := CallChecked(func() error { return want })
	require.ErrorIs(t, err, want)
}

// sanity check that a raw data pointer is nonzero while IsTextPtr still
// accepts an ordinary closure.
func TestIsTextPtrIndependentOfRawPointerArithmetic(t *testing.T) {
	var x int
	raw := uintptr(unsafe.Pointer(&x))
	require.NotZero(t, raw)
	require.True(t, IsTextPtr(func() error { return nil }))
}
