package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file and report every invalid setting.

Examples:
  rftool config validate --config /etc/rftool/rftool.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	if _, err := config.Load(configPath); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				cmd.PrintErrf("  %s: failed %q (value %v)\n", fe.Namespace(), fe.Tag(), fe.Value())
			}
		}
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	source := configPath
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", source)
	return nil
}
