package cmd

import (
	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/spf13/cobra"
)

// auditCmd computes fairness metrics and parity verdicts for a dataset.
var auditCmd = &cobra.Command{
	Use:   "audit <dataset>",
	Short: "Compute fairness metrics across protected groups",
	Long: `Partition a dataset by one or more protected attributes and compute the
requested fairness metrics for every group and group pair.

Per-group metrics:
- selection_rate - share of favorable decisions
- base_rate - share of positive ground-truth labels
- true_positive_rate / false_positive_rate - error rates against ground truth

Pairwise metrics (require --reference or --pairs):
- disparate_impact, statistical_parity_difference
- equal_opportunity_difference, false_positive_rate_difference

Every run ends with parity verdicts (Pass, Warning, Fail, Insufficient) for
each attribute, and is recorded in the run store unless --run-backend none.

Examples:
  # Audit approvals by race against a reference group
  fairspot audit loans.csv --prediction approved --attributes race --reference white

  # Map a text outcome to favorable and compare explicit pairs
  fairspot audit loans.csv --prediction decision --favorable approved --attributes sex --pairs F:M

  # Intersectional audit stratified by region, written as JSON
  fairspot audit loans.csv --truth repaid --prediction approved \
    --attributes race,sex --intersectional --control region --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAudit(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run audit", err)
		}
	},
}
