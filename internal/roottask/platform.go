package roottask

import (
	"fmt"
	"sync"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// Platform centralises every raw capability-syscall primitive the
// bootstrap sequencer needs, mirroring
// original_source/apps/root-task/src/bootstrap/ffi.rs's purpose: no file
// outside this module may reference the bare kernel call symbols, so every
// other bootstrap file depends only on this interface.
type Platform interface {
	// BootInfoView returns the kernel-provided boot record.
	BootInfoView() BootInfo
	// CNodeMintToSlot mints a new capability with the given rights into
	// destSlot within root's CNode.
	CNodeMintToSlot(root uint64, destSlot uint64, badge uint64, rights CapRights) error
	// UntypedRetypeToSlot retypes one object out of untyped into destSlot.
	UntypedRetypeToSlot(untyped UntypedDesc, objectType string, destSlot uint64) error
	// MapDevicePage maps a device untyped's backing page read-write into
	// the init VSpace at vaddr.
	MapDevicePage(untyped UntypedDesc, vaddr uintptr) error
}

// CapRights mirrors cap_rights_read_write_grant's fixed rights triple.
type CapRights struct {
	Read  bool
	Write bool
	Grant bool
}

// ReadWriteGrant is the fixed rights set cspace.rs's
// cap_rights_read_write_grant always constructs.
func ReadWriteGrant() CapRights { return CapRights{Read: true, Write: true, Grant: true} }

// HostSimPlatform is an in-process Platform used for host-side dry runs and
// tests: it records every primitive call instead of issuing real
// capability syscalls, since those require running under the target
// microkernel.
type HostSimPlatform struct {
	mu        sync.Mutex
	bootInfo  BootInfo
	minted    []string
	retyped   []string
	mappedVA  []uintptr
	failSlots map[uint64]bool
}

// NewHostSimPlatform builds a HostSimPlatform that will report bi as the
// boot record.
func NewHostSimPlatform(bi BootInfo) *HostSimPlatform {
	return &HostSimPlatform{bootInfo: bi, failSlots: make(map[uint64]bool)}
}

func (p *HostSimPlatform) BootInfoView() BootInfo { return p.bootInfo }

func (p *HostSimPlatform) CNodeMintToSlot(root, destSlot, badge uint64, rights CapRights) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSlots[destSlot] {
		return apperr.New(apperr.Invalid, "simulated mint failure at slot %d", destSlot)
	}
	p.minted = append(p.minted, fmt.Sprintf("root=%d slot=%d badge=%d rights=%+v", root, destSlot, badge, rights))
	return nil
}

func (p *HostSimPlatform) UntypedRetypeToSlot(untyped UntypedDesc, objectType string, destSlot uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSlots[destSlot] {
		return apperr.New(apperr.Invalid, "simulated retype failure at slot %d", destSlot)
	}
	p.retyped = append(p.retyped, fmt.Sprintf("base=%#x type=%s slot=%d", untyped.Base, objectType, destSlot))
	return nil
}

func (p *HostSimPlatform) MapDevicePage(untyped UntypedDesc, vaddr uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mappedVA = append(p.mappedVA, vaddr)
	return nil
}

// FailSlot makes a future mint/retype targeting slot fail, for exercising
// the sequencer's abort path in tests.
func (p *HostSimPlatform) FailSlot(slot uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSlots[slot] = true
}

// Retyped returns a copy of every retype call recorded so far, for test
// assertions.
func (p *HostSimPlatform) Retyped() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.retyped...)
}

// PlanUntypedForDevice selects the device untyped backing physAddr, the
// UART MMIO page in the normal boot path (spec §4.10 "UntypedPlan picks the
// device untyped that backs the UART MMIO page").
func PlanUntypedForDevice(list []UntypedDesc, physAddr uint64) (UntypedDesc, error) {
	for _, u := range list {
		if !u.Device {
			continue
		}
		if physAddr >= u.Base && physAddr < u.end() {
			return u, nil
		}
	}
	return UntypedDesc{}, apperr.New(apperr.NotFound, "no device untyped backs physical address %#x", physAddr)
}

// RetypeOne allocates the next slot in win and retypes untyped into it via
// platform, returning the slot used (original_source/apps/root-task/src/
// bootstrap/retype.rs's retype_one).
func RetypeOne(win *CSpaceWindow, platform Platform, untyped UntypedDesc, objectType string) (uint64, error) {
	slot, err := win.AllocSlot()
	if err != nil {
		return 0, err
	}
	if err := platform.UntypedRetypeToSlot(untyped, objectType, slot); err != nil {
		return 0, err
	}
	return slot, nil
}
