package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var healthDiagnostics bool

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report retrieval health",
	Long: `Health wires the pipeline with the current configuration and prints
the retrieval health report: embedder and index status, dimension
agreement and whether a re-index is required. --diagnostics adds the
catalog version, excluded rows, thresholds and drafter.

Example:
  nurpath health
  nurpath health --diagnostics`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().BoolVar(&healthDiagnostics, "diagnostics", false, "print full diagnostics")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, false)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if healthDiagnostics {
		return enc.Encode(a.pipeline.Diagnostics(ctx))
	}
	return enc.Encode(a.pipeline.Health(ctx))
}
