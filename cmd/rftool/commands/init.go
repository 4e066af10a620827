package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/config"
)

const defaultConfigPath = "rftool.yaml"

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Write a configuration file holding every setting at its default value.

Examples:
  # Write ./rftool.yaml
  rftool init

  # Write to a custom path, replacing an existing file
  rftool init --config /etc/rftool/rftool.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the configuration file to match the board")
	fmt.Fprintf(out, "  2. Start the server with: rftool start --config %s\n", path)
	return nil
}
