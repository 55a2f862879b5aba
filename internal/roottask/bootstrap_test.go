package roottask

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func bootableBootInfo() BootInfo {
	bi := validBootInfo()
	bi.IPCBufferPtr = 0x10000
	return bi
}

func TestBootstrapRunsToCompletionAndMapsUART(t *testing.T) {
	platform := NewHostSimPlatform(bootableBootInfo())
	var crumbs []string
	seq := Bootstrap(platform, Config{WordBits: 64, UARTPhysAddr: 0x2000, UARTVirtAddr: 0x40000000}, func(line string) {
		crumbs = append(crumbs, line)
	})

	require.NoError(t, seq.Run())
	require.Equal(t, Committed, seq.State())
	require.Len(t, platform.Retyped(), 1)
	require.Contains(t, crumbs[len(crumbs)-1], "commit")
}

func TestBootstrapAbortsOnBadBootInfo(t *testing.T) {
	bi := bootableBootInfo()
	bi.InitCNodeBits = 0
	platform := NewHostSimPlatform(bi)
	seq := Bootstrap(platform, Config{WordBits: 64, UARTPhysAddr: 0x2000}, nil)

	err := seq.Run()
	require.Error(t, err)
}

func TestBootstrapAbortsWhenNoDeviceUntypedBacksUART(t *testing.T) {
	platform := NewHostSimPlatform(bootableBootInfo())
	seq := Bootstrap(platform, Config{WordBits: 64, UARTPhysAddr: 0xdeadbeef}, nil)

	err := seq.Run()
	require.Error(t, err)
}
