package roottask

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func TestPlanUntypedForDeviceFindsMatchingRegion(t *testing.T) {
	list := []UntypedDesc{
		{Base: 0x1000, SizeBits: 12},
		{Base: 0x9000_0000, SizeBits: 16, Device: true},
	}
	got, err := PlanUntypedForDevice(list, 0x9000_0100)
	require.NoError(t, err)
	require.Equal(t, uint64(0x9000_0000), got.Base)
}

func TestPlanUntypedForDeviceMissNotFound(t *testing.T) {
	_, err := PlanUntypedForDevice(nil, 0x1000)
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestRetypeOneAllocatesAndRetypes(t *testing.T) {
	win := NewCSpaceWindow(BootInfo{EmptySlotRegion: SlotRegion{Start: 5, End: 6}})
	plat := NewHostSimPlatform(BootInfo{})
	slot, err := RetypeOne(&win, plat, UntypedDesc{Base: 0x1000, SizeBits: 12}, "tcb")
	require.NoError(t, err)
	require.Equal(t, uint64(5), slot)
	require.Len(t, plat.Retyped(), 1)
}

func TestRetypeOnePropagatesPlatformFailure(t *testing.T) {
	win := NewCSpaceWindow(BootInfo{EmptySlotRegion: SlotRegion{Start: 5, End: 6}})
	plat := NewHostSimPlatform(BootInfo{})
	plat.FailSlot(5)
	_, err := RetypeOne(&win, plat, UntypedDesc{Base: 0x1000, SizeBits: 12}, "tcb")
	require.Error(t, err)
}
