package schema

// CheckResult holds the results of a policy check over pairwise metrics.
type CheckResult struct {
	Passed     bool                   `json:"passed"`
	Dataset    string                 `json:"dataset"`
	Thresholds map[MetricName]float64 `json:"thresholds"`
	Checked    int                    `json:"checked"`
	Skipped    int                    `json:"skipped"`
	Violations []CheckViolation       `json:"violations"`
	Worst      map[MetricName]float64 `json:"worst"`
}

// CheckViolation is one pairwise result outside its threshold.
type CheckViolation struct {
	Metric    MetricName `json:"metric"`
	Attribute string     `json:"attribute"`
	Stratum   string     `json:"stratum,omitempty"`
	Group     string     `json:"group"`
	Reference string     `json:"reference"`
	Value     float64    `json:"value"`
	Threshold float64    `json:"threshold"`
}

// DefaultParityThreshold is the max-minus-min disparity a verdict tolerates.
const DefaultParityThreshold = 0.1

// WarningRatio is the fraction of the parity threshold above which a passing
// verdict is downgraded to a warning.
const WarningRatio = 0.8

// DefaultCheckThresholds returns the policy check thresholds. Disparate impact
// uses the four-fifths rule; the differences use an absolute bound.
func DefaultCheckThresholds() map[MetricName]float64 {
	return map[MetricName]float64{
		StatisticalParityDifference: 0.1,
		DisparateImpact:             0.8,
		EqualOpportunityDifference:  0.1,
		FalsePositiveRateDifference: 0.1,
	}
}

// CheckAliases maps the short names accepted by --thresholds to metrics.
var CheckAliases = map[string]MetricName{
	"spd":  StatisticalParityDifference,
	"di":   DisparateImpact,
	"eod":  EqualOpportunityDifference,
	"fprd": FalsePositiveRateDifference,
}
