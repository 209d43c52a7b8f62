package cmd

import (
	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check <dataset>",
	Short: "Enforce fairness thresholds for CI/CD pipelines (fails build on violations)",
	Long: `Audit a dataset and gate every pairwise result against policy thresholds.

Designed for CI/CD integration - exits with a non-zero code when any group pair
falls outside the acceptable range. Undefined results are reported but never fail.

Default thresholds:
- spd (statistical_parity_difference): |value| <= 0.1
- di (disparate_impact): value within [0.8, 1.25]
- eod (equal_opportunity_difference): |value| <= 0.1
- fprd (false_positive_rate_difference): |value| <= 0.1

Thresholds can also be set under 'thresholds:' in .fairspot.yaml.

Examples:
  # Gate a model release against the reference group
  fairspot check scored.csv --prediction approved --attributes race --reference white

  # Tighter parity gate with a relaxed disparate impact bound
  fairspot check scored.csv --prediction approved --attributes sex --pairs F:M \
    --thresholds-override "spd:0.05,di:0.7"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Validation is done in ExecuteCheck
		if err := core.ExecuteCheck(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Policy check failed", err)
		}
	},
}
