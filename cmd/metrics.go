package cmd

import (
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/outwriter"
	"github.com/spf13/cobra"
)

// metricsCmd displays the formal definitions of all catalog metrics.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display formulas and definitions for all fairness metrics",
	Long: `Show the metric catalog: every metric's scope, required columns and formula.

No dataset is read - this is purely informational.

Examples:
  # Show the catalog
  fairspot metrics

  # Machine-readable catalog
  fairspot metrics --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := outwriter.PrintCatalog(cfg); err != nil {
			contract.LogFatal("Cannot display metrics", err)
		}
	},
}
