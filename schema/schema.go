// Package schema has models, catalog definitions and typed errors for all parts of fairspot.
package schema

import "time"

// AuditResult is the complete outcome of auditing one dataset.
type AuditResult struct {
	RunID       string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Dataset     string         `json:"dataset" yaml:"dataset"`
	RecordCount int            `json:"record_count" yaml:"record_count"`
	Config      EngineConfig   `json:"config" yaml:"config"`
	Results     []MetricResult `json:"results" yaml:"results"`
	Verdicts    []Verdict      `json:"verdicts" yaml:"verdicts"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
}

// Verdict is the parity check of one per-group metric within one attribute
// (and stratum, for conditional parity).
type Verdict struct {
	Metric    MetricName    `json:"metric" yaml:"metric"`
	Attribute string        `json:"attribute" yaml:"attribute"`
	Stratum   string        `json:"stratum,omitempty" yaml:"stratum,omitempty"`
	Disparity float64       `json:"disparity" yaml:"disparity"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	MaxGroup  string        `json:"max_group,omitempty" yaml:"max_group,omitempty"`
	MinGroup  string        `json:"min_group,omitempty" yaml:"min_group,omitempty"`
	Fair      bool          `json:"fair" yaml:"fair"`
	Status    VerdictStatus `json:"status" yaml:"status"`
	Rates     []GroupRate   `json:"rates" yaml:"rates"`
}

// GroupRate is a defined per-group value feeding a verdict.
type GroupRate struct {
	Group string  `json:"group" yaml:"group"`
	Value float64 `json:"value" yaml:"value"`
}

// DatasetProfile summarizes a table before auditing it.
type DatasetProfile struct {
	Source       string          `json:"source" yaml:"source"`
	Rows         int             `json:"rows" yaml:"rows"`
	Columns      []ColumnProfile `json:"columns" yaml:"columns"`
	Target       string          `json:"target,omitempty" yaml:"target,omitempty"`
	TargetCounts []ValueCount    `json:"target_counts,omitempty" yaml:"target_counts,omitempty"`
}

// ColumnProfile holds per-column statistics.
type ColumnProfile struct {
	Name     string `json:"name" yaml:"name"`
	Missing  int    `json:"missing" yaml:"missing"`
	Distinct int    `json:"distinct" yaml:"distinct"`
}

// ValueCount is the frequency of one value.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}
