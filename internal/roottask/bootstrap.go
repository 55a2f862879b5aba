package roottask

import "github.com/cohesix/ninedoor/internal/ninedoor/apperr"

// Config bundles the environment-specific parameters Bootstrap needs beyond
// what Platform already exposes: the target word width BootInfoValidate
// checks the CNode bit width against, and the physical/virtual addresses of
// the UART MMIO page UntypedPlan/RetypeCommit map in (spec §4.10).
type Config struct {
	WordBits     uint
	UARTPhysAddr uint64
	UARTVirtAddr uintptr
}

// Bootstrap assembles a Sequencer with all eight phases bound to real
// bodies over platform, mirroring the individual steps documented across
// original_source/apps/root-task/src/bootstrap/{cspace,retype}.rs: no single
// retrieved file wires all eight in one place, so this is the Go-native
// assembly point cmd/roottask drives. It returns the built Sequencer
// unstarted — call Run to execute it exactly once.
func Bootstrap(platform Platform, cfg Config, crumb Breadcrumb) *Sequencer {
	guard := NewRunStateGuard()
	seq := NewSequencer(guard, crumb)

	var bi BootInfo
	var win CSpaceWindow
	var uartUntyped UntypedDesc

	// CSpaceCanonicalise: pull the kernel's boot record into process memory
	// before anything else touches it.
	seq.Bind(PhaseCSpaceCanonicalise, func() error {
		bi = platform.BootInfoView()
		return nil
	})

	// BootInfoValidate: reject a malformed boot record outright (spec
	// §4.10 bullet list).
	seq.Bind(PhaseBootInfoValidate, func() error {
		return ValidateBootInfo(bi, cfg.WordBits)
	})

	// MemoryLayoutBuild: no additional state beyond the validated boot
	// record in this host model; a hardware target would compute VSpace
	// page-table layout here.
	seq.Bind(PhaseMemoryLayoutBuild, func() error {
		return nil
	})

	// CSpaceRecord: publish the immutable allocation window later phases
	// (and RetypeOne) allocate from.
	seq.Bind(PhaseCSpaceRecord, func() error {
		win = NewCSpaceWindow(bi)
		return nil
	})

	// IPCInstall: the init thread's IPC buffer must already be mapped by
	// the kernel; a nil pointer means the boot record is unusable.
	seq.Bind(PhaseIPCInstall, func() error {
		if bi.IPCBufferPtr == 0 {
			return apperr.New(apperr.Invalid, "ipc buffer pointer is nil")
		}
		return nil
	})

	// UntypedPlan: pick the device untyped backing the UART MMIO page.
	seq.Bind(PhaseUntypedPlan, func() error {
		var err error
		uartUntyped, err = PlanUntypedForDevice(bi.UntypedList, cfg.UARTPhysAddr)
		return err
	})

	// RetypeCommit: retype that untyped into a page capability and map it
	// read-write into the init VSpace.
	seq.Bind(PhaseRetypeCommit, func() error {
		if _, err := RetypeOne(&win, platform, uartUntyped, "device_page"); err != nil {
			return err
		}
		return platform.MapDevicePage(uartUntyped, cfg.UARTVirtAddr)
	})

	// UserlandHandoff: nothing left to validate; the sequencer commits
	// the run-state right after this phase returns.
	seq.Bind(PhaseUserlandHandoff, func() error {
		return nil
	})

	return seq
}
