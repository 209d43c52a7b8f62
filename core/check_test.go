package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(metric schema.MetricName, group, ref string, v *float64) schema.MetricResult {
	return schema.MetricResult{Metric: metric, Attribute: "race", Group: group, Reference: ref, Value: v}
}

func TestEvaluateCheck(t *testing.T) {
	thresholds := map[schema.MetricName]float64{
		schema.StatisticalParityDifference: 0.1,
		schema.DisparateImpact:             0.8,
	}

	tests := []struct {
		name       string
		results    []schema.MetricResult
		passed     bool
		violations int
		checked    int
		skipped    int
	}{
		{
			name: "all within bounds",
			results: []schema.MetricResult{
				pair(schema.StatisticalParityDifference, "X", "Y", ptr(-0.05)),
				pair(schema.DisparateImpact, "X", "Y", ptr(0.9)),
				pair(schema.DisparateImpact, "Z", "Y", ptr(1.2)),
			},
			passed:  true,
			checked: 3,
		},
		{
			name: "difference magnitude exceeds threshold",
			results: []schema.MetricResult{
				pair(schema.StatisticalParityDifference, "X", "Y", ptr(-0.25)),
			},
			violations: 1,
			checked:    1,
		},
		{
			name: "disparate impact outside both bounds",
			results: []schema.MetricResult{
				pair(schema.DisparateImpact, "X", "Y", ptr(0.5)),
				pair(schema.DisparateImpact, "Z", "Y", ptr(1.3)),
			},
			violations: 2,
			checked:    2,
		},
		{
			name: "undefined values are skipped",
			results: []schema.MetricResult{
				pair(schema.DisparateImpact, "X", "Y", nil),
			},
			passed:  true,
			skipped: 1,
		},
		{
			name: "per-group and unchecked metrics are ignored",
			results: []schema.MetricResult{
				rate("race", "X", ptr(0.9)),
				pair(schema.EqualOpportunityDifference, "X", "Y", ptr(0.9)),
			},
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateCheck(tt.results, thresholds)
			assert.Equal(t, tt.passed, result.Passed)
			assert.Len(t, result.Violations, tt.violations)
			assert.Equal(t, tt.checked, result.Checked)
			assert.Equal(t, tt.skipped, result.Skipped)
			assert.NotNil(t, result.Violations)
		})
	}
}

func TestEvaluateCheck_Worst(t *testing.T) {
	thresholds := map[schema.MetricName]float64{
		schema.StatisticalParityDifference: 0.5,
		schema.DisparateImpact:             0.5,
	}
	results := []schema.MetricResult{
		pair(schema.StatisticalParityDifference, "X", "Y", ptr(0.1)),
		pair(schema.StatisticalParityDifference, "Z", "Y", ptr(-0.3)),
		pair(schema.DisparateImpact, "X", "Y", ptr(0.8)),
		pair(schema.DisparateImpact, "Z", "Y", ptr(1.6)),
	}

	result := EvaluateCheck(results, thresholds)
	assert.True(t, result.Passed)
	assert.InDelta(t, 0.3, result.Worst[schema.StatisticalParityDifference], 1e-9)
	// 1.6 is further from parity than 0.8: 1 - 1/1.6 = 0.375
	assert.InDelta(t, 0.375, result.Worst[schema.DisparateImpact], 1e-9)
}

func TestDeviation(t *testing.T) {
	assert.InDelta(t, 0.2, deviation(schema.StatisticalParityDifference, -0.2), 1e-9)
	assert.InDelta(t, 0.5, deviation(schema.DisparateImpact, 2), 1e-9)
	assert.InDelta(t, 0.5, deviation(schema.DisparateImpact, 0.5), 1e-9)
	assert.Equal(t, 1.0, deviation(schema.DisparateImpact, 0))
}

func TestPrintCheckResult(t *testing.T) {
	thresholds := map[schema.MetricName]float64{
		schema.StatisticalParityDifference: 0.1,
		schema.DisparateImpact:             0.8,
	}

	t.Run("success", func(t *testing.T) {
		result := EvaluateCheck([]schema.MetricResult{
			pair(schema.StatisticalParityDifference, "X", "Y", ptr(0.05)),
		}, thresholds)
		result.Dataset = "loans.csv"

		var buf bytes.Buffer
		printCheckResult(&buf, &result, time.Second)
		out := buf.String()
		assert.Contains(t, out, "Dataset:")
		assert.Contains(t, out, "loans.csv")
		assert.Contains(t, out, "spd=0.10, di=0.80")
		assert.Contains(t, out, "✅ All comparisons passed")
		assert.Contains(t, out, "statistical_parity_difference: 0.050")
		assert.Contains(t, out, "disparate_impact: none")
	})

	t.Run("failure", func(t *testing.T) {
		result := EvaluateCheck([]schema.MetricResult{
			pair(schema.DisparateImpact, "X", "Y", ptr(0.5)),
			{Metric: schema.DisparateImpact, Attribute: "race", Stratum: "north", Group: "Z", Reference: "Y", Value: ptr(0.2)},
		}, thresholds)

		var buf bytes.Buffer
		printCheckResult(&buf, &result, time.Second)
		out := buf.String()
		assert.Contains(t, out, "❌ Policy check failed: 2 violation(s)")
		assert.Contains(t, out, "Metric: disparate_impact (2 violations)")
		assert.Contains(t, out, "Z vs Y (race @ north): 0.200")
		// Worst deviation first
		assert.Less(t, bytes.Index(buf.Bytes(), []byte("Z vs Y")), bytes.Index(buf.Bytes(), []byte("X vs Y")))
	})
}

func TestExecuteCheck_RequiresPairing(t *testing.T) {
	err := ExecuteCheck(context.Background(), auditConfig(), nil)
	assert.ErrorContains(t, err, "requires --reference or --pairs")
}

func TestExecuteCheck_Violations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.csv")
	content := "race,approved\nX,1\nX,1\nX,0\nX,0\nY,1\nY,0\nY,0\nY,0\nY,0\nY,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := auditConfig()
	cfg.DatasetPath = path
	cfg.PredictionColumn = "approved"
	cfg.Engine.Metrics = []schema.MetricName{schema.SelectionRate, schema.DisparateImpact}
	cfg.Engine.Pairing = schema.ReferencePairing("Y")
	cfg.CheckThresholds = map[schema.MetricName]float64{schema.DisparateImpact: 0.8}
	cfg.Output = schema.JSONOut

	// DI of X against Y is 0.5 / (1/6) = 3, above 1/0.8
	err := ExecuteCheck(context.Background(), cfg, nil)
	assert.EqualError(t, err, "1 violation(s) found")
}
