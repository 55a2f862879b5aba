package roottask

import "github.com/cohesix/ninedoor/internal/ninedoor/apperr"

// UntypedDesc describes one untyped memory region offered by the boot
// record (spec §6 "Bootinfo record").
type UntypedDesc struct {
	Base     uint64
	SizeBits uint8
	Device   bool
}

func (u UntypedDesc) end() uint64 { return u.Base + (1 << u.SizeBits) }

// SlotRegion is a half-open [Start, End) window of capability-slot indices.
type SlotRegion struct {
	Start uint64
	End   uint64
}

func (r SlotRegion) cardinality() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// BootInfo is the subset of the kernel-provided boot record the bootstrap
// sequencer consumes (spec §6).
type BootInfo struct {
	InitCNodeCap    uint64
	InitCNodeBits   uint8
	EmptySlotRegion SlotRegion
	UntypedRegion   SlotRegion
	UntypedList     []UntypedDesc
	IPCBufferPtr    uintptr
	ExtraHeaders    map[string][]byte // optional, e.g. "fdt"
}

// ValidateBootInfo enforces spec §4.10's BootInfoValidate rejections:
// init-CNode bit width outside (0, wordBits], an empty-slot window whose
// cardinality exceeds the CNode's capacity, and overlapping untyped
// descriptors.
func ValidateBootInfo(bi BootInfo, wordBits uint) error {
	if bi.InitCNodeBits == 0 || uint(bi.InitCNodeBits) > wordBits {
		return apperr.New(apperr.Invalid, "init cnode bits %d outside (0, %d]", bi.InitCNodeBits, wordBits)
	}

	cnodeCapacity := uint64(1) << bi.InitCNodeBits
	if bi.EmptySlotRegion.cardinality() > cnodeCapacity {
		return apperr.New(apperr.Invalid, "empty slot window cardinality %d exceeds cnode capacity %d", bi.EmptySlotRegion.cardinality(), cnodeCapacity)
	}

	sorted := append([]UntypedDesc(nil), bi.UntypedList...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if a.Base < b.end() && b.Base < a.end() {
				return apperr.New(apperr.Invalid, "overlapping untyped descriptors at base %#x and %#x", a.Base, b.Base)
			}
		}
	}

	return nil
}
