package schema

import "time"

// AuditRunRecord represents a row from the fairspot_audit_runs table.
type AuditRunRecord struct {
	RunID         int64
	RunUUID       string
	Dataset       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalRecords  int32
	TotalResults  int32
	Fair          *bool
	ConfigParams  *string
}

// MetricResultRecord represents a row from the fairspot_metric_results table.
type MetricResultRecord struct {
	RunID               int64
	Seq                 int32
	Metric              string
	Attribute           string
	Stratum             string
	GroupValue          string
	ReferenceValue      string
	Value               *float64
	SampleSize          int32
	ReferenceSampleSize int32
}
