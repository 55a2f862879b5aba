package roottask

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func TestCSpaceWindowAllocSlotAdvancesWithinBounds(t *testing.T) {
	win := NewCSpaceWindow(BootInfo{EmptySlotRegion: SlotRegion{Start: 10, End: 12}})
	s0, err := win.AllocSlot()
	require.NoError(t, err)
	require.Equal(t, uint64(10), s0)

	s1, err := win.AllocSlot()
	require.NoError(t, err)
	require.Equal(t, uint64(11), s1)
}

func TestCSpaceWindowAllocSlotExhausted(t *testing.T) {
	win := NewCSpaceWindow(BootInfo{EmptySlotRegion: SlotRegion{Start: 10, End: 10}})
	_, err := win.AllocSlot()
	require.Error(t, err)
	require.Equal(t, apperr.NoMem, apperr.CodeOf(err))
}

func TestCSpaceWindowAssertContainsPanicsOutsideWindow(t *testing.T) {
	win := NewCSpaceWindow(BootInfo{EmptySlotRegion: SlotRegion{Start: 10, End: 20}})
	require.Panics(t, func() { win.AssertContains(9) })
	require.Panics(t, func() { win.AssertContains(20) })
	require.NotPanics(t, func() { win.AssertContains(10) })
}
