package schema

import "math"

// MetricResult is one computed statistic. A nil Value means the metric is
// undefined for this group or pair (zero denominator).
type MetricResult struct {
	Metric              MetricName `json:"metric" yaml:"metric"`
	Attribute           string     `json:"attribute" yaml:"attribute"`
	Stratum             string     `json:"stratum,omitempty" yaml:"stratum,omitempty"`
	Group               string     `json:"group" yaml:"group"`
	Reference           string     `json:"reference,omitempty" yaml:"reference,omitempty"`
	Value               *float64   `json:"value" yaml:"value"`
	SampleSize          int        `json:"sample_size" yaml:"sample_size"`
	ReferenceSampleSize int        `json:"reference_sample_size,omitempty" yaml:"reference_sample_size,omitempty"`
}

// Defined reports whether the result carries a numeric value.
func (r MetricResult) Defined() bool {
	return r.Value != nil
}

// Float returns the value, or NaN when undefined.
func (r MetricResult) Float() float64 {
	if r.Value == nil {
		return math.NaN()
	}
	return *r.Value
}

// IsPairwise reports whether the result compares two groups.
func (r MetricResult) IsPairwise() bool {
	return r.Reference != ""
}

// MetricDefinition describes one catalog entry.
type MetricDefinition struct {
	Name        MetricName     `json:"name"`
	Scope       MetricScope    `json:"scope"`
	Requires    []OutcomeField `json:"requires"`
	Formula     string         `json:"formula"`
	Range       string         `json:"range"`
	Undefined   string         `json:"undefined_when"`
	Description string         `json:"description"`
}

// Catalog lists every supported metric in display order.
var Catalog = []MetricDefinition{
	{
		Name:        SelectionRate,
		Scope:       GroupScope,
		Requires:    []OutcomeField{PredictionField},
		Formula:     "P(prediction=+ | g)",
		Range:       "[0, 1]",
		Undefined:   "group is empty",
		Description: "Fraction of the group receiving a positive predicted outcome",
	},
	{
		Name:        BaseRate,
		Scope:       GroupScope,
		Requires:    []OutcomeField{TruthField},
		Formula:     "P(truth=+ | g)",
		Range:       "[0, 1]",
		Undefined:   "group is empty",
		Description: "Fraction of the group with a positive ground-truth outcome",
	},
	{
		Name:        TruePositiveRate,
		Scope:       GroupScope,
		Requires:    []OutcomeField{TruthField, PredictionField},
		Formula:     "TP / (TP + FN)",
		Range:       "[0, 1]",
		Undefined:   "no ground-truth positives in group",
		Description: "Share of actual positives predicted positive",
	},
	{
		Name:        FalsePositiveRate,
		Scope:       GroupScope,
		Requires:    []OutcomeField{TruthField, PredictionField},
		Formula:     "FP / (FP + TN)",
		Range:       "[0, 1]",
		Undefined:   "no ground-truth negatives in group",
		Description: "Share of actual negatives predicted positive",
	},
	{
		Name:        DisparateImpact,
		Scope:       PairScope,
		Requires:    []OutcomeField{PredictionField},
		Formula:     "SR(A) / SR(B)",
		Range:       "[0, +inf)",
		Undefined:   "either group empty or SR(B) = 0",
		Description: "Ratio of selection rates against the reference group",
	},
	{
		Name:        StatisticalParityDifference,
		Scope:       PairScope,
		Requires:    []OutcomeField{PredictionField},
		Formula:     "SR(A) - SR(B)",
		Range:       "[-1, 1]",
		Undefined:   "either group empty",
		Description: "Difference of selection rates against the reference group",
	},
	{
		Name:        EqualOpportunityDifference,
		Scope:       PairScope,
		Requires:    []OutcomeField{TruthField, PredictionField},
		Formula:     "TPR(A) - TPR(B)",
		Range:       "[-1, 1]",
		Undefined:   "either TPR undefined",
		Description: "Difference of true positive rates against the reference group",
	},
	{
		Name:        FalsePositiveRateDifference,
		Scope:       PairScope,
		Requires:    []OutcomeField{TruthField, PredictionField},
		Formula:     "FPR(A) - FPR(B)",
		Range:       "[-1, 1]",
		Undefined:   "either FPR undefined",
		Description: "Difference of false positive rates; with the TPR difference it forms equalized odds",
	},
}

// LookupMetric returns the definition of a metric name.
func LookupMetric(name MetricName) (MetricDefinition, bool) {
	for _, def := range Catalog {
		if def.Name == name {
			return def, true
		}
	}
	return MetricDefinition{}, false
}

// AllMetrics returns every catalog name in display order.
func AllMetrics() []MetricName {
	names := make([]MetricName, len(Catalog))
	for i, def := range Catalog {
		names[i] = def.Name
	}
	return names
}
