// Package commands implements rfctl, the command line client of rftool.
package commands

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/rftool/rfclient"
)

// Global flags.
var (
	host        string
	commandPort int
	dataPort    int
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rfctl",
	Short: "rfctl - client for the rftool server",
	Long: `rfctl connects to an rftool server, sends commands and receives the
sample stream.

Use "rfctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "server host")
	rootCmd.PersistentFlags().IntVar(&commandPort, "command-port", rfclient.DefaultCommandPort, "command channel port")
	rootCmd.PersistentFlags().IntVar(&dataPort, "data-port", rfclient.DefaultDataPort, "data channel port")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "dial and response timeout")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(streamCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func clientConfig() rfclient.Config {
	cfg := rfclient.DefaultConfig(host)
	cfg.CommandAddress = net.JoinHostPort(host, strconv.Itoa(commandPort))
	cfg.DataAddress = net.JoinHostPort(host, strconv.Itoa(dataPort))
	cfg.ConnectionTimeout = timeout
	cfg.ResponseTimeout = timeout
	cfg.WriteTimeout = timeout
	return cfg
}

// connect dials the server. The caller owns the client and must Close it.
func connect(ctx context.Context) (*rfclient.Client, error) {
	return rfclient.Dial(ctx, clientConfig())
}
