package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/logger"
	"github.com/cohesix/ninedoor/internal/profiling"
	"github.com/cohesix/ninedoor/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the NineDoor server",
	Long: `start loads configuration, builds the provider tree, access policy,
audit center, and CAS store, then listens for 9P2000-style connections on
the configured transport address until interrupted.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopProfiling, err := profiling.Init(profiling.Config{
		Enabled:        cfg.Profiling.Enabled,
		ServiceName:    cfg.Profiling.ServiceName,
		ServiceVersion: cfg.Profiling.ServiceVersion,
		Endpoint:       cfg.Profiling.Endpoint,
		ProfileTypes:   cfg.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("init profiling: %w", err)
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("stop profiler", "error", err)
		}
	}()

	srv, err := buildServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		errCh <- srv.serve(ctx)
	}()

	if cfg.Metrics.Enabled {
		go func() {
			if err := serveMetrics(ctx, cfg.Metrics.Listen); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections", "timeout", cfg.ShutdownTimeout)
		select {
		case <-errCh:
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("shutdown timeout elapsed before listener loop returned")
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	}
}
