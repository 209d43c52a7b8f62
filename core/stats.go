package core

import "github.com/huangsam/fairspot/schema"

// groupStats holds the confusion counts of one group. It lives only for the
// duration of a single engine call.
type groupStats struct {
	n             int
	predPositive  int
	truthPositive int
	truthNegative int
	truePositive  int
	falsePositive int
}

func countGroup(g schema.Group, cls outcomeClassifier) groupStats {
	s := groupStats{n: g.Size()}
	for _, r := range g.Records {
		pred := cls.isPositive(r.Prediction)
		if pred {
			s.predPositive++
		}
		if r.Truth == nil {
			continue
		}
		if cls.isPositive(r.Truth) {
			s.truthPositive++
			if pred {
				s.truePositive++
			}
		} else {
			s.truthNegative++
			if pred {
				s.falsePositive++
			}
		}
	}
	return s
}

// ratio returns num/den, or nil when den is zero.
func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

func (s groupStats) selectionRate() (*float64, int) {
	return ratio(s.predPositive, s.n), s.n
}

func (s groupStats) baseRate() (*float64, int) {
	return ratio(s.truthPositive, s.n), s.n
}

func (s groupStats) truePositiveRate() (*float64, int) {
	return ratio(s.truePositive, s.truthPositive), s.truthPositive
}

func (s groupStats) falsePositiveRate() (*float64, int) {
	return ratio(s.falsePositive, s.truthNegative), s.truthNegative
}

// rateOf returns the per-group rate behind a metric together with the
// denominator it was computed over.
func (s groupStats) rateOf(metric schema.MetricName) (*float64, int) {
	switch metric {
	case schema.SelectionRate, schema.DisparateImpact, schema.StatisticalParityDifference:
		return s.selectionRate()
	case schema.BaseRate:
		return s.baseRate()
	case schema.TruePositiveRate, schema.EqualOpportunityDifference:
		return s.truePositiveRate()
	case schema.FalsePositiveRate, schema.FalsePositiveRateDifference:
		return s.falsePositiveRate()
	default:
		return nil, 0
	}
}

// compare combines two group rates into a pairwise value.
func compare(metric schema.MetricName, a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	var v float64
	switch metric {
	case schema.DisparateImpact:
		if *b == 0 {
			return nil
		}
		v = *a / *b
	default:
		v = *a - *b
	}
	return &v
}
