package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
)

// ExecuteCheck runs the check command for CI/CD gating.
// It audits the dataset, checks every pairwise result against its threshold,
// and returns an error if any result is out of bounds.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if cfg.Engine.Pairing.Kind == schema.PairingNone && len(cfg.Engine.Pairings) == 0 {
		return fmt.Errorf("check command requires --reference or --pairs. Example: fairspot check loans.csv --prediction approved --attributes race --reference white")
	}

	audit, duration, err := GetAuditResults(WithSuppressHeader(ctx), cfg, mgr)
	if err != nil {
		return err
	}

	result := EvaluateCheck(audit.Results, cfg.CheckThresholds)
	result.Dataset = audit.Dataset

	if cfg.Output == schema.JSONOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode check result: %w", err)
		}
	} else {
		printCheckResult(os.Stdout, &result, duration)
	}

	if !result.Passed {
		return fmt.Errorf("%d violation(s) found", len(result.Violations))
	}
	return nil
}

// EvaluateCheck gates pairwise results against per-metric thresholds.
// Differences fail when their magnitude exceeds the threshold. Disparate impact
// fails outside [t, 1/t]. Undefined values are skipped.
func EvaluateCheck(results []schema.MetricResult, thresholds map[schema.MetricName]float64) schema.CheckResult {
	check := schema.CheckResult{
		Passed:     true,
		Thresholds: thresholds,
		Violations: []schema.CheckViolation{},
		Worst:      make(map[schema.MetricName]float64),
	}

	for _, r := range results {
		threshold, ok := thresholds[r.Metric]
		if !ok || !r.IsPairwise() {
			continue
		}
		if !r.Defined() {
			check.Skipped++
			continue
		}
		check.Checked++

		v := *r.Value
		severity := deviation(r.Metric, v)
		if worst, seen := check.Worst[r.Metric]; !seen || severity > worst {
			check.Worst[r.Metric] = severity
		}

		if violates(r.Metric, v, threshold) {
			check.Passed = false
			check.Violations = append(check.Violations, schema.CheckViolation{
				Metric:    r.Metric,
				Attribute: r.Attribute,
				Stratum:   r.Stratum,
				Group:     r.Group,
				Reference: r.Reference,
				Value:     v,
				Threshold: threshold,
			})
		}
	}
	return check
}

// deviation measures how far a value is from parity. For disparate impact it
// is the distance of the smaller ratio direction from 1.
func deviation(metric schema.MetricName, v float64) float64 {
	if metric != schema.DisparateImpact {
		return math.Abs(v)
	}
	if v == 0 {
		return 1
	}
	return 1 - math.Min(v, 1/v)
}

func violates(metric schema.MetricName, v, threshold float64) bool {
	if metric != schema.DisparateImpact {
		return math.Abs(v) > threshold
	}
	return v < threshold || v > 1/threshold
}

// printCheckResult prints the check result in a concise format suitable for CI/CD.
func printCheckResult(w io.Writer, result *schema.CheckResult, duration time.Duration) {
	printCheckHeader(w, result, duration)

	if result.Passed {
		printCheckSuccess(w, result)
	} else {
		printCheckFailure(w, result)
	}
}

// checkedMetrics lists the metrics of a threshold map in catalog order.
func checkedMetrics(thresholds map[schema.MetricName]float64) []schema.MetricName {
	var metrics []schema.MetricName
	for _, name := range schema.AllMetrics() {
		if _, ok := thresholds[name]; ok {
			metrics = append(metrics, name)
		}
	}
	return metrics
}

func printCheckHeader(w io.Writer, result *schema.CheckResult, duration time.Duration) {
	_, _ = fmt.Fprintln(w, "Policy Check Results:")

	labels := []string{"Dataset:", "Thresholds:"}
	values := []any{
		result.Dataset,
		fmt.Sprintf("spd=%.2f, di=%.2f, eod=%.2f, fprd=%.2f",
			result.Thresholds[schema.StatisticalParityDifference],
			result.Thresholds[schema.DisparateImpact],
			result.Thresholds[schema.EqualOpportunityDifference],
			result.Thresholds[schema.FalsePositiveRateDifference]),
	}

	maxLabelLen := 0
	for _, label := range labels {
		maxLabelLen = max(maxLabelLen, len(label))
	}
	for i, label := range labels {
		_, _ = fmt.Fprintf(w, "  %-*s %v\n", maxLabelLen+1, label, values[i])
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Checked %d comparisons (%d undefined) in %v\n\n", result.Checked, result.Skipped, duration)
}

func printCheckSuccess(w io.Writer, result *schema.CheckResult) {
	_, _ = fmt.Fprintf(w, "✅ All comparisons passed policy checks\n\n")
	_, _ = fmt.Fprintln(w, "Largest deviations observed:")
	for _, metric := range checkedMetrics(result.Thresholds) {
		worst, ok := result.Worst[metric]
		if !ok {
			_, _ = fmt.Fprintf(w, "  %s: none\n", metric)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s: %.3f\n", metric, worst)
	}
}

func printCheckFailure(w io.Writer, result *schema.CheckResult) {
	_, _ = fmt.Fprintf(w, "❌ Policy check failed: %d violation(s) found across %d comparisons\n\n", len(result.Violations), result.Checked)

	byMetric := make(map[schema.MetricName][]schema.CheckViolation)
	for _, v := range result.Violations {
		byMetric[v.Metric] = append(byMetric[v.Metric], v)
	}

	for _, metric := range checkedMetrics(result.Thresholds) {
		violations := byMetric[metric]
		if len(violations) == 0 {
			continue
		}
		slices.SortStableFunc(violations, func(a, b schema.CheckViolation) int {
			da, db := deviation(metric, a.Value), deviation(metric, b.Value)
			switch {
			case da > db:
				return -1
			case da < db:
				return 1
			}
			return 0
		})

		_, _ = fmt.Fprintf(w, "Metric: %s (%d violations)\n", metric, len(violations))

		const maxToShow = 5
		for i, v := range violations {
			if i == maxToShow {
				_, _ = fmt.Fprintf(w, "  ... and %d more\n", len(violations)-maxToShow)
				break
			}
			_, _ = fmt.Fprintf(w, "  - %s vs %s (%s): %.3f, threshold %.2f\n", v.Group, v.Reference, scopeLabel(v.Attribute, v.Stratum), v.Value, v.Threshold)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func scopeLabel(attribute, stratum string) string {
	if stratum == "" {
		return attribute
	}
	return attribute + " @ " + stratum
}
