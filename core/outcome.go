package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/fairspot/schema"
)

// binaryPairs are the outcome spaces whose positive class can be inferred.
// The first element of each pair is positive.
var binaryPairs = [][2]string{
	{"1", "0"},
	{"1.0", "0.0"},
	{"true", "false"},
	{"yes", "no"},
	{"y", "n"},
	{"positive", "negative"},
	{"pos", "neg"},
}

// outcomeClassifier decides whether an outcome value is positive.
type outcomeClassifier struct {
	positive string
	fold     bool
}

func (c outcomeClassifier) isPositive(v *string) bool {
	if v == nil {
		return false
	}
	value := strings.TrimSpace(*v)
	if c.fold {
		return strings.EqualFold(value, c.positive)
	}
	return value == c.positive
}

// resolvePositiveClass returns the classifier for the configured positive
// class, or infers one from the observed outcome space of the given fields.
func resolvePositiveClass(records []schema.Record, configured string, fields []schema.OutcomeField, metric schema.MetricName) (outcomeClassifier, error) {
	if configured != "" {
		return outcomeClassifier{positive: strings.TrimSpace(configured)}, nil
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		for _, f := range fields {
			if v := r.Field(f); v != nil {
				seen[strings.ToLower(strings.TrimSpace(*v))] = struct{}{}
			}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)

	if len(values) > 2 {
		return outcomeClassifier{}, &schema.ConfigurationError{
			Metric: metric,
			Field:  "positive_class",
			Reason: fmt.Sprintf("outcome space has %d values %v; a positive class must be designated", len(values), values),
		}
	}

	for _, pair := range binaryPairs {
		fits := true
		for _, v := range values {
			if v != pair[0] && v != pair[1] {
				fits = false
				break
			}
		}
		if fits {
			return outcomeClassifier{positive: pair[0], fold: true}, nil
		}
	}

	return outcomeClassifier{}, &schema.ConfigurationError{
		Metric: metric,
		Field:  "positive_class",
		Reason: fmt.Sprintf("cannot infer the positive class from outcome values %v; designate one explicitly", values),
	}
}
