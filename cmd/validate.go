package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/responder"
)

var validatePrint bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, including environment overrides,
without opening any device.

Examples:
  rawhttpd validate -c config.yml
  rawhttpd validate -c config.yml --print`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, validatePrint, cmd.OutOrStdout())
	},
}

func init() {
	validateCmd.Flags().BoolVarP(&validatePrint, "print", "p", false,
		"print the effective configuration as YAML")
}

func runValidate(path string, dump bool, w io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	if dump {
		return config.Dump(w, cfg)
	}

	fmt.Fprintf(w, "VALID: serving port %d on %s, %d byte response\n",
		cfg.Listen.Port,
		cfg.Link.Interface,
		len(responder.HTTPResponse(cfg.Response)),
	)
	return nil
}
