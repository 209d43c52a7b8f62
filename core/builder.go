package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/ingest"
	"github.com/huangsam/fairspot/schema"
)

// AuditBuilder builds an audit result step by step.
type AuditBuilder struct {
	ctx     context.Context
	cfg     *contract.Config
	mgr     contract.StoreManager
	start   time.Time
	source  string
	records []schema.Record
	result  *schema.AuditResult
}

// NewAuditBuilder is the starting point for auditing a dataset.
func NewAuditBuilder(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) *AuditBuilder {
	return &AuditBuilder{
		ctx:   ctx,
		cfg:   cfg,
		mgr:   mgr,
		start: time.Now(),
	}
}

// WithRecords uses in-memory records instead of loading the dataset.
func (b *AuditBuilder) WithRecords(source string, records []schema.Record) *AuditBuilder {
	b.source = source
	b.records = records
	return b
}

// LoadDataset reads the configured dataset and maps it onto records.
func (b *AuditBuilder) LoadDataset() (*AuditBuilder, error) {
	if b.cfg.DatasetPath == "" {
		return nil, fmt.Errorf("no dataset given. Example: fairspot audit loans.csv --prediction approved --attributes race")
	}
	table, err := ingest.Load(b.cfg.DatasetPath, ingest.Options{Delimiter: b.cfg.Delimiter, DropNA: b.cfg.DropNA})
	if err != nil {
		return nil, err
	}
	records, err := ingest.ToRecords(table, MappingFor(b.cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", b.cfg.DatasetPath, err)
	}
	return b.WithRecords(b.cfg.DatasetPath, records), nil
}

// ComputeMetrics evaluates the metric catalog over the records.
func (b *AuditBuilder) ComputeMetrics() (*AuditBuilder, error) {
	results, err := computeAll(b.ctx, b.records, b.cfg.Engine, b.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("audit of %s failed: %w", b.source, err)
	}
	b.result = &schema.AuditResult{
		Dataset:     b.source,
		RecordCount: len(b.records),
		Config:      b.cfg.Engine,
		Results:     results,
		StartedAt:   b.start,
	}
	slog.Info("metrics computed", "dataset", b.source, "records", len(b.records), "results", len(results))
	return b, nil
}

// EvaluateVerdicts judges the parity of the configured per-group metric.
func (b *AuditBuilder) EvaluateVerdicts() *AuditBuilder {
	b.result.Verdicts = EvaluateParity(b.result.Results, b.cfg.VerdictMetric, b.cfg.VerdictThreshold)
	return b
}

// RecordRun persists the run when a run store is configured. Tracking
// failures are logged, never fatal.
func (b *AuditBuilder) RecordRun() *AuditBuilder {
	b.result.Duration = time.Since(b.start)
	if b.mgr == nil {
		return b
	}
	store := b.mgr.GetRunStore()
	if store == nil {
		return b
	}

	runID, runUUID, err := store.BeginRun(b.start, b.source, configParams(b.cfg))
	if err != nil {
		logTrackingError("begin run", err)
		return b
	}
	b.result.RunID = runUUID
	if err := store.RecordResults(runID, b.result.Results); err != nil {
		logTrackingError("record results", err)
	}
	if err := store.EndRun(runID, time.Now(), b.result.RecordCount, fairOverall(b.result.Verdicts)); err != nil {
		logTrackingError("end run", err)
	}
	slog.Debug("run recorded", "run_id", runID, "run_uuid", runUUID)
	return b
}

// Build returns the completed audit result.
func (b *AuditBuilder) Build() *schema.AuditResult {
	return b.result
}

// MappingFor returns the column mapping for a config. The control column is
// loaded as an attribute so that conditional parity can see it.
func MappingFor(cfg *contract.Config) ingest.Mapping {
	attrs := slices.Clone(cfg.Engine.Attributes)
	if c := cfg.Engine.Control; c != "" && !slices.Contains(attrs, c) {
		attrs = append(attrs, c)
	}
	return ingest.Mapping{
		Truth:      cfg.TruthColumn,
		Prediction: cfg.PredictionColumn,
		Score:      cfg.ScoreColumn,
		Attributes: attrs,
		Favorable:  cfg.Favorable,
	}
}
