package roottask

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
	"github.com/stretchr/testify/require"
)

func validBootInfo() BootInfo {
	return BootInfo{
		InitCNodeCap:    1,
		InitCNodeBits:   12,
		EmptySlotRegion: SlotRegion{Start: 16, End: 64},
		UntypedRegion:   SlotRegion{Start: 64, End: 80},
		UntypedList: []UntypedDesc{
			{Base: 0x1000, SizeBits: 12},
			{Base: 0x2000, SizeBits: 12, Device: true},
		},
	}
}

func TestValidateBootInfoAcceptsWellFormedRecord(t *testing.T) {
	require.NoError(t, ValidateBootInfo(validBootInfo(), 64))
}

func TestValidateBootInfoRejectsCNodeBitsOutOfRange(t *testing.T) {
	bi := validBootInfo()
	bi.InitCNodeBits = 0
	err := ValidateBootInfo(bi, 64)
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))

	bi.InitCNodeBits = 65
	require.Error(t, ValidateBootInfo(bi, 64))
}

func TestValidateBootInfoRejectsOversizeEmptySlotWindow(t *testing.T) {
	bi := validBootInfo()
	bi.InitCNodeBits = 4
	bi.EmptySlotRegion = SlotRegion{Start: 0, End: 100}
	err := ValidateBootInfo(bi, 64)
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))
}

func TestValidateBootInfoRejectsOverlappingUntypeds(t *testing.T) {
	bi := validBootInfo()
	bi.UntypedList = []UntypedDesc{
		{Base: 0x1000, SizeBits: 12},
		{Base: 0x1800, SizeBits: 12},
	}
	err := ValidateBootInfo(bi, 64)
	require.Error(t, err)
	require.Equal(t, apperr.Invalid, apperr.CodeOf(err))
}
