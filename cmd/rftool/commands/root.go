// Package commands implements the rftool server CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/cmd/rftool/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "rftool",
	Short: "rftool - RF data converter control server",
	Long: `rftool serves one client at a time over a command channel and a data
channel. Commands configure the RF data converters, the clock chip, GPIO lines
and memory-mapped registers; the data channel streams samples while the
session is active.

Use "rftool [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
