package cmd

import (
	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/spf13/cobra"
)

// exploreCmd profiles a dataset before auditing it.
var exploreCmd = &cobra.Command{
	Use:   "explore <dataset>",
	Short: "Profile dataset columns and value counts",
	Long: `Summarize a dataset without computing any metrics.

Reports the row count and, per column, the number of missing and distinct values.
With --target, also prints how often each value of that column occurs. Use it to
pick protected attributes and spot sparse groups before running an audit.

Examples:
  # Column overview
  fairspot explore loans.csv

  # Group sizes of a protected attribute
  fairspot explore loans.csv --target race`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteExplore(rootCtx, cfg); err != nil {
			contract.LogFatal("Cannot explore dataset", err)
		}
	},
}
