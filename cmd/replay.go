package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/daemon"
	"firestige.xyz/rawhttpd/internal/link"
	logpkg "firestige.xyz/rawhttpd/internal/log"
)

var (
	replayIn  string
	replayOut string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed a capture through the responder offline",
	Long: `Read Ethernet frames from a pcap or pcapng capture, run them through the same
dispatch loop as serve and write every reply frame to an output capture.
No interface is opened and no privileges are needed.

Examples:
  rawhttpd replay -c config.yml --in client.pcap --out replies.pcap`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logpkg.Init(cfg.Log); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logpkg.Close()
		return runReplay(cmd.Context(), cfg, replayIn, replayOut, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "capture to replay (required)")
	replayCmd.Flags().StringVar(&replayOut, "out", "", "capture receiving the replies")
	_ = replayCmd.MarkFlagRequired("in")
}

func runReplay(ctx context.Context, cfg *config.GlobalConfig, in, out string, w io.Writer) error {
	pcap, err := link.OpenPcapFile(in, out)
	if err != nil {
		return err
	}
	dev, err := daemon.Trace(cfg, pcap)
	if err != nil {
		pcap.Close()
		return err
	}

	mac, _ := cfg.Listen.HardwareAddr()
	loop := daemon.NewLoop(cfg, dev, mac)
	runErr := loop.Run(ctx)
	if err := dev.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	s := loop.Stats()
	fmt.Fprintf(w, "replayed %d frame(s): %d accepted, %d dropped, %d ignored, %d sent\n",
		s.Received, s.Accepted, s.Dropped, s.Ignored, s.Sent)
	if out != "" {
		fmt.Fprintf(w, "replies written to %s\n", out)
	}
	return nil
}
