package cmd

import (
	"fmt"
	"io"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/daemon"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running rawhttpd",
	Long: `Send SIGTERM to the process recorded in control.pid_file.
The daemon closes the link, stops the metrics server and removes the PID file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runStop(cfg.Control.PIDFile, syscall.SIGTERM, cmd.OutOrStdout())
	},
}

func runStop(pidFile string, sig syscall.Signal, w io.Writer) error {
	pid, err := daemon.Signal(pidFile, sig)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Signal %d sent to rawhttpd (pid %d)\n", int(sig), pid)
	return nil
}
