package core

import (
	"github.com/huangsam/fairspot/schema"
)

type verdictKey struct {
	attribute string
	stratum   string
}

// EvaluateParity produces one verdict per attribute (and stratum) for a
// per-group metric, comparing the spread of defined group values against
// threshold. Verdicts come out in the order their attributes first appear.
func EvaluateParity(results []schema.MetricResult, metric schema.MetricName, threshold float64) []schema.Verdict {
	if threshold <= 0 {
		threshold = schema.DefaultParityThreshold
	}

	var order []verdictKey
	rates := make(map[verdictKey][]schema.GroupRate)
	for _, r := range results {
		if r.Metric != metric || r.IsPairwise() {
			continue
		}
		k := verdictKey{attribute: r.Attribute, stratum: r.Stratum}
		if _, ok := rates[k]; !ok {
			order = append(order, k)
			rates[k] = []schema.GroupRate{}
		}
		if r.Defined() {
			rates[k] = append(rates[k], schema.GroupRate{Group: r.Group, Value: *r.Value})
		}
	}

	verdicts := make([]schema.Verdict, 0, len(order))
	for _, k := range order {
		verdicts = append(verdicts, judge(metric, k, rates[k], threshold))
	}
	return verdicts
}

func judge(metric schema.MetricName, k verdictKey, rates []schema.GroupRate, threshold float64) schema.Verdict {
	v := schema.Verdict{
		Metric:    metric,
		Attribute: k.attribute,
		Stratum:   k.stratum,
		Threshold: threshold,
		Rates:     rates,
	}

	// No comparison is possible, which is treated as fair.
	if len(rates) < 2 {
		v.Fair = true
		v.Status = schema.VerdictInsufficient
		return v
	}

	hi, lo := rates[0], rates[0]
	for _, r := range rates[1:] {
		if r.Value > hi.Value {
			hi = r
		}
		if r.Value < lo.Value {
			lo = r
		}
	}
	v.MaxGroup, v.MinGroup = hi.Group, lo.Group
	v.Disparity = hi.Value - lo.Value
	v.Fair = v.Disparity <= threshold

	switch {
	case !v.Fair:
		v.Status = schema.VerdictFail
	case v.Disparity > schema.WarningRatio*threshold:
		v.Status = schema.VerdictWarning
	default:
		v.Status = schema.VerdictPass
	}
	return v
}
