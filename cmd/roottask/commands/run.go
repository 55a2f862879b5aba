package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/roottask"
	"github.com/cohesix/ninedoor/pkg/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the root-task bootstrap sequence once",
	Long: `run loads a bootinfo record, builds a host-simulated capability
platform over it, and drives the eight-phase bootstrap sequencer to
completion (or abort), logging one breadcrumb per phase the way the UART
console would on real hardware.`,
	RunE: runBootstrap,
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rt := cfg.RootTask
	if rt.BootinfoPath == "" {
		return fmt.Errorf("root_task.bootinfo_path is not configured")
	}

	bi, err := roottask.LoadBootInfoFile(rt.BootinfoPath)
	if err != nil {
		return fmt.Errorf("load bootinfo: %w", err)
	}

	platform := roottask.NewHostSimPlatform(bi)
	seq := roottask.Bootstrap(platform, roottask.Config{
		WordBits:     rt.WordBits,
		UARTPhysAddr: rt.UARTPhysAddr,
		UARTVirtAddr: uintptr(rt.UARTVirtAddr),
	}, func(line string) {
		logger.Info("roottask breadcrumb", "line", line)
	})

	if rt.WatchManifest {
		stop := make(chan struct{})
		defer close(stop)
		if err := roottask.WatchManifest(rt.BootinfoPath, stop, func() {
			logger.Warn("bootinfo manifest changed after bootstrap started; ignoring (single-shot sequencer)")
		}); err != nil {
			return fmt.Errorf("watch manifest: %w", err)
		}
	}

	if err := seq.Run(); err != nil {
		logger.Error("root-task bootstrap aborted", "err", err, "state", seq.State())
		return fmt.Errorf("bootstrap: %w", err)
	}

	logger.Info("root-task bootstrap committed", "state", seq.State(), "retyped_objects", len(platform.Retyped()))
	return nil
}
