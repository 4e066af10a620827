package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/perfmonitor"
	"github.com/cyberinferno/rftool/rfclient"
)

var streamDuration time.Duration

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Receive the sample stream and report throughput",
	Long: `Open a session, count the bytes arriving on the data channel for the
given duration, then disconnect and print the throughput.

Examples:
  rfctl stream --duration 10s`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().DurationVarP(&streamDuration, "duration", "d", 5*time.Second, "how long to receive")
}

func runStream(cmd *cobra.Command, args []string) error {
	pm := perfmonitor.NewPerformanceMonitor()

	c := rfclient.New(clientConfig())
	defer c.Close()
	c.OnDataReceived(func(e rfclient.DataReceivedEvent) {
		pm.Add(e.Length)
	})

	if err := c.Connect(cmd.Context()); err != nil {
		return err
	}
	pm.Start()

	select {
	case <-cmd.Context().Done():
	case <-time.After(streamDuration):
	}

	if err := c.Disconnect(); err != nil {
		return err
	}
	pm.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "received %d bytes in %s (%.2f MB/s)\n",
		pm.Bytes(), pm.Elapsed().Round(time.Millisecond), pm.MegabytesPerSecond())
	return nil
}
