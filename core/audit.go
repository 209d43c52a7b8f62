package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/outwriter"
	"github.com/huangsam/fairspot/schema"
	"golang.org/x/sync/errgroup"
)

// ExecuteAudit runs the audit command and prints the report.
func ExecuteAudit(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	result, duration, err := GetAuditResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	if err := outwriter.PrintAuditResult(result, cfg, duration); err != nil {
		return err
	}
	if cfg.Textfile != "" {
		if err := outwriter.WriteTextfile(cfg.Textfile, result); err != nil {
			return err
		}
	}
	return nil
}

// GetAuditResults loads the configured dataset and audits it without printing.
func GetAuditResults(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.AuditResult, time.Duration, error) {
	start := time.Now()
	if !shouldSuppressHeader(ctx) {
		outwriter.LogAuditHeader(cfg)
	}

	builder := NewAuditBuilder(ctx, cfg, mgr)
	if _, err := builder.LoadDataset(); err != nil {
		return nil, 0, err
	}
	result, err := runAudit(builder)
	if err != nil {
		return nil, 0, err
	}
	return result, time.Since(start), nil
}

// AuditRecords audits records that are already in memory, e.g. from an HTTP body.
func AuditRecords(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, source string, records []schema.Record) (*schema.AuditResult, error) {
	return runAudit(NewAuditBuilder(ctx, cfg, mgr).WithRecords(source, records))
}

func runAudit(builder *AuditBuilder) (*schema.AuditResult, error) {
	if _, err := builder.ComputeMetrics(); err != nil {
		return nil, err
	}
	return builder.EvaluateVerdicts().RecordRun().Build(), nil
}

// computeAll runs the engine once per protected attribute in parallel and
// concatenates the results in attribute order. The output is identical to a
// single ComputeMetrics call over all attributes.
func computeAll(ctx context.Context, records []schema.Record, eng schema.EngineConfig, workers int) ([]schema.MetricResult, error) {
	if eng.Intersectional || len(eng.Attributes) <= 1 || workers <= 1 {
		return ComputeMetrics(records, eng)
	}

	// Config-wide problems are reported once, before any fan-out.
	if _, err := planMetrics(records, eng); err != nil {
		return nil, err
	}

	parts := make([][]schema.MetricResult, len(eng.Attributes))
	errs := make([]error, len(eng.Attributes))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, attr := range eng.Attributes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			sub := eng
			sub.Attributes = []string{attr}
			parts[i], errs[i] = ComputeMetrics(records, ScopeOverrides(sub))
			return nil
		})
	}
	_ = g.Wait()

	// Report the first failing attribute, as a sequential run would.
	for i, err := range errs {
		if err != nil {
			slog.Debug("attribute failed", "attribute", eng.Attributes[i], "error", err)
			return nil, err
		}
	}

	var results []schema.MetricResult
	for _, part := range parts {
		results = append(results, part...)
	}
	return results, nil
}

// configParams summarizes a config for run tracking.
func configParams(cfg *contract.Config) map[string]any {
	params := map[string]any{
		"attributes":        cfg.Engine.Attributes,
		"metrics":           cfg.Engine.Metrics,
		"intersectional":    cfg.Engine.Intersectional,
		"missing_attribute": string(cfg.Engine.MissingAttribute),
		"verdict_metric":    string(cfg.VerdictMetric),
		"verdict_threshold": cfg.VerdictThreshold,
		"workers":           cfg.Workers,
	}
	if cfg.Engine.Pairing.Kind != schema.PairingNone {
		params["pairing"] = cfg.Engine.Pairing
	}
	if cfg.Engine.Control != "" {
		params["control"] = cfg.Engine.Control
	}
	if cfg.Engine.PositiveClass != "" {
		params["positive_class"] = cfg.Engine.PositiveClass
	}
	if cfg.Favorable != "" {
		params["favorable"] = cfg.Favorable
	}
	return params
}

// fairOverall reports whether every verdict is fair.
func fairOverall(verdicts []schema.Verdict) bool {
	for _, v := range verdicts {
		if !v.Fair {
			return false
		}
	}
	return true
}

func logTrackingError(operation string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed to %s", operation), err)
}
