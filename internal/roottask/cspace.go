package roottask

import "github.com/cohesix/ninedoor/internal/ninedoor/apperr"

// CSpaceWindow is the immutable allocation window published by CSpaceRecord
// (spec §4.10): `CSpaceWindow(root_cap, depth_bits, empty_start, empty_end,
// first_free)`, grounded on original_source/apps/root-task/src/cspace.rs.
type CSpaceWindow struct {
	RootCap    uint64
	DepthBits  uint8
	EmptyStart uint64
	EmptyEnd   uint64
	firstFree  uint64
}

// NewCSpaceWindow builds a window over the boot record's empty-slot region.
func NewCSpaceWindow(bi BootInfo) CSpaceWindow {
	return CSpaceWindow{
		RootCap:    bi.InitCNodeCap,
		DepthBits:  bi.InitCNodeBits,
		EmptyStart: bi.EmptySlotRegion.Start,
		EmptyEnd:   bi.EmptySlotRegion.End,
		firstFree:  bi.EmptySlotRegion.Start,
	}
}

// Depth returns the CNode's addressing depth in bits.
func (w CSpaceWindow) Depth() uint8 { return w.DepthBits }

// FirstFree returns the next slot AllocSlot would hand out.
func (w CSpaceWindow) FirstFree() uint64 { return w.firstFree }

// AssertContains halts the process if slot escaped the window — a later
// allocation computed outside CSpaceRecord's published bounds indicates a
// bookkeeping bug serious enough that continuing risks capability
// corruption (spec §4.10 "panics (halt) if a later allocation escapes the
// window").
func (w CSpaceWindow) AssertContains(slot uint64) {
	if slot < w.EmptyStart || slot >= w.EmptyEnd {
		panic(apperr.New(apperr.Invalid, "cspace allocation escaped window: slot=%d window=[%d,%d)", slot, w.EmptyStart, w.EmptyEnd))
	}
}

// AllocSlot hands out the next free slot in the window, advancing
// firstFree. Exhausting the window fails rather than wrapping or escaping
// it.
func (w *CSpaceWindow) AllocSlot() (uint64, error) {
	if w.firstFree >= w.EmptyEnd {
		return 0, apperr.New(apperr.NoMem, "cspace window [%d,%d) exhausted", w.EmptyStart, w.EmptyEnd)
	}
	slot := w.firstFree
	w.AssertContains(slot)
	w.firstFree++
	return slot, nil
}
