package config

import (
	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration rftool start would use: defaults, then the
config file, then RFTOOL_* environment overrides.

Examples:
  # Show the built-in defaults
  rftool config show

  # Show a config file with environment overrides applied
  RFTOOL_HARDWARE_BOARD=zcu208 rftool config show --config rftool.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
