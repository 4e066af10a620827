package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/config"
	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rftool server",
	Long: `Start the rftool server in the foreground.

Startup initializes the memory map and GPIO controller (fatal on failure),
probes the clock chip, applies converter defaults and binds the data and
command listeners. SIGINT or SIGTERM ends the active session and stops the
server.

Examples:
  # Start with the built-in defaults (simulated hardware)
  rftool start

  # Start with a config file
  rftool start --config /etc/rftool/rftool.yaml

  # Override settings through the environment
  RFTOOL_LOGGING_LEVEL=debug RFTOOL_SERVER_IDLE_TIMEOUT=5m rftool start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Service: "rftool",
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "config", Value: configSource(GetConfigFile())},
		logger.Field{Key: "board", Value: cfg.Hardware.Board},
	)

	srv, err := server.New(ctx, cfg, log, server.WithVersion(Version))
	if err != nil {
		log.Error("startup failed", logger.Field{Key: "error", Value: err.Error()})
		return err
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", logger.Field{Key: "error", Value: err.Error()})
		return err
	}

	log.Info("server stopped")
	return nil
}

func configSource(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}
