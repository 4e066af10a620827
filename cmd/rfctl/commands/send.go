package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Send commands and print the responses",
	Long: `Open a session, send one command, print the response and disconnect.
Several commands can be separated by ";".

Examples:
  rfctl send GetBoard
  rfctl send SetMixerSettings 0 0 0 2 3 0 1250.5 45 0
  rfctl --host 10.0.0.7 send "UpdateEvent 0 0 0 1; GetMixerSettings 0 0 0"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	for _, line := range strings.Split(strings.Join(args, " "), ";") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		resp, err := c.Send(line)
		if err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
		fmt.Fprintln(out, resp)
	}

	return c.Disconnect()
}
