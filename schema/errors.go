package schema

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid engine configuration. It always
// aborts the whole computation.
type ConfigurationError struct {
	Metric MetricName
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Metric != "" {
		fmt.Fprintf(&b, " for metric %q", e.Metric)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// InputShapeError reports records lacking a field that a requested metric
// needs. It is raised per call, never per record. Reason, when set,
// replaces the missing-count message for values that cannot be grouped.
type InputShapeError struct {
	Metric  MetricName
	Field   string
	Missing int
	Total   int
	Reason  string
}

func (e *InputShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("input shape error: field %q: %s", e.Field, e.Reason)
	}
	if e.Metric == "" {
		return fmt.Sprintf("input shape error: field %q is missing on %d of %d records", e.Field, e.Missing, e.Total)
	}
	return fmt.Sprintf("input shape error for metric %q: field %q is missing on %d of %d records", e.Metric, e.Field, e.Missing, e.Total)
}
