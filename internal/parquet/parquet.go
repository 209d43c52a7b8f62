// Package parquet provides data structures and functions for exporting fairspot
// audit data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/fairspot/schema"
	"github.com/parquet-go/parquet-go"
)

// AuditRun represents a single audit run with metadata.
// This struct maps to the fairspot_audit_runs database table.
type AuditRun struct {
	RunID   int64  `parquet:"run_id,snappy"`
	RunUUID string `parquet:"run_uuid,snappy"`
	Dataset string `parquet:"dataset,snappy"`

	// StartTime is when the audit began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is nil for runs that never completed
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`

	TotalRecords int32 `parquet:"total_records,snappy"`
	TotalResults int32 `parquet:"total_results,snappy"`

	// Fair is the overall verdict of the run (nullable)
	Fair *bool `parquet:"fair,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// MetricResult represents one computed metric of a run.
// This struct maps to the fairspot_metric_results database table.
type MetricResult struct {
	RunID int64 `parquet:"run_id,snappy"`

	// Seq preserves the result order of the engine
	Seq int32 `parquet:"seq,snappy"`

	Metric         string `parquet:"metric,snappy,dict"`
	Attribute      string `parquet:"attribute,snappy,dict"`
	Stratum        string `parquet:"stratum,snappy"`
	GroupValue     string `parquet:"group_value,snappy"`
	ReferenceValue string `parquet:"reference_value,snappy"`

	// Value is nil when the metric is undefined
	Value *float64 `parquet:"value,optional,snappy"`

	SampleSize          int32 `parquet:"sample_size,snappy"`
	ReferenceSampleSize int32 `parquet:"reference_sample_size,snappy"`
}

// WriteAuditRunsParquet writes a slice of AuditRun structs to a Parquet file.
func WriteAuditRunsParquet(data []AuditRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteMetricResultsParquet writes a slice of MetricResult structs to a Parquet file.
func WriteMetricResultsParquet(data []MetricResult, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using struct schema inference from the parquet tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// FromResults converts engine results to rows. runID is 0 for unrecorded audits.
func FromResults(runID int64, results []schema.MetricResult) []MetricResult {
	rows := make([]MetricResult, len(results))
	for i, r := range results {
		rows[i] = MetricResult{
			RunID:               runID,
			Seq:                 int32(i),
			Metric:              string(r.Metric),
			Attribute:           r.Attribute,
			Stratum:             r.Stratum,
			GroupValue:          r.Group,
			ReferenceValue:      r.Reference,
			Value:               r.Value,
			SampleSize:          int32(r.SampleSize),
			ReferenceSampleSize: int32(r.ReferenceSampleSize),
		}
	}
	return rows
}

// ConvertAuditRunRecords converts schema.AuditRunRecord to AuditRun for Parquet export.
func ConvertAuditRunRecords(records []schema.AuditRunRecord) []AuditRun {
	result := make([]AuditRun, len(records))
	for i, record := range records {
		result[i] = AuditRun{
			RunID:         record.RunID,
			RunUUID:       record.RunUUID,
			Dataset:       record.Dataset,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalRecords:  record.TotalRecords,
			TotalResults:  record.TotalResults,
			Fair:          record.Fair,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertMetricResultRecords converts schema.MetricResultRecord to MetricResult for Parquet export.
func ConvertMetricResultRecords(records []schema.MetricResultRecord) []MetricResult {
	result := make([]MetricResult, len(records))
	for i, record := range records {
		result[i] = MetricResult{
			RunID:               record.RunID,
			Seq:                 record.Seq,
			Metric:              record.Metric,
			Attribute:           record.Attribute,
			Stratum:             record.Stratum,
			GroupValue:          record.GroupValue,
			ReferenceValue:      record.ReferenceValue,
			Value:               record.Value,
			SampleSize:          record.SampleSize,
			ReferenceSampleSize: record.ReferenceSampleSize,
		}
	}
	return result
}
