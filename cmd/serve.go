package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fixed response on the configured interface",
	Long: `Open the configured interface and answer connections until SIGINT or SIGTERM.
Requires CAP_NET_RAW.

Examples:
  rawhttpd serve -c /etc/rawhttpd/config.yml
  RAWHTTPD_LINK_INTERFACE=wlan0 rawhttpd serve -c config.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return daemon.New(cfg).Run(cmd.Context())
	},
}
