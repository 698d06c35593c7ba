// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/rawhttpd/internal/daemon"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rawhttpd",
	Short: "rawhttpd - minimal TCP/IP responder on a raw Ethernet socket",
	Long: `rawhttpd answers HTTP requests on one TCP port without the kernel TCP stack.
It reads Ethernet frames from an AF_PACKET socket, runs a minimal per-connection
TCP state machine and replies to every request with one fixed HTTP response.

The kernel must not answer the served port itself, e.g.:
  iptables -A OUTPUT -p tcp --sport 8080 --tcp-flags RST RST -j DROP`,
	Version:       daemon.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/rawhttpd/config.yml",
		"config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(stopCmd)
}
