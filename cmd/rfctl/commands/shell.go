package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/status"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive command session",
	Long: `Open a session and send each line read from standard input. The session
ends on "Disconnect", end of input, or when the server closes it.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprint(out, "> ")
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		if strings.EqualFold(line, "disconnect") {
			return c.Disconnect()
		}

		resp, err := c.Send(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp)

		if resp == status.DisconnectSentinel {
			return nil
		}
		fmt.Fprint(out, "> ")
	}

	if err := in.Err(); err != nil {
		return err
	}

	return c.Disconnect()
}
