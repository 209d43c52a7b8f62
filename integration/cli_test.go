//go:build basic

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuditJSON audits the sample dataset and verifies pairwise values by hand.
func TestAuditJSON(t *testing.T) {
	dataset := writeDataset(t)
	outFile := filepath.Join(t.TempDir(), "audit.json")

	_, err := runFairspot(t, "audit", dataset,
		"--prediction", "approved", "--attributes", "race", "--reference", "Y",
		"--metrics", "selection_rate,disparate_impact,statistical_parity_difference",
		"--run-backend", "none", "--output", "json", "--output-file", outFile)
	require.NoError(t, err)

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result schema.AuditResult
	require.NoError(t, json.Unmarshal(content, &result))

	assert.Equal(t, 10, result.RecordCount)
	values := make(map[string]float64)
	for _, r := range result.Results {
		if r.Value != nil {
			values[string(r.Metric)+"/"+r.Group] = *r.Value
		}
	}
	assert.InDelta(t, 0.5, values["selection_rate/X"], 1e-9)
	assert.InDelta(t, 1.0/6, values["selection_rate/Y"], 1e-9)
	assert.InDelta(t, 3.0, values["disparate_impact/X"], 1e-9)
	assert.InDelta(t, 1.0/3, values["statistical_parity_difference/X"], 1e-9)

	require.Len(t, result.Verdicts, 1)
	assert.Equal(t, schema.VerdictFail, result.Verdicts[0].Status)
}

// TestCheckExitCode expects a non-zero exit on a parity violation.
func TestCheckExitCode(t *testing.T) {
	dataset := writeDataset(t)

	output, err := runFairspot(t, "check", dataset,
		"--prediction", "approved", "--attributes", "race", "--reference", "Y", "--run-backend", "none")
	require.Error(t, err)
	assert.Contains(t, output, "violation(s) found")

	_, err = runFairspot(t, "check", dataset,
		"--prediction", "approved", "--attributes", "race", "--reference", "Y", "--run-backend", "none",
		"--thresholds-override", "spd:0.5,di:0.3")
	require.NoError(t, err)
}

// TestRunsLifecycleSQLite records an audit in SQLite and exports it.
func TestRunsLifecycleSQLite(t *testing.T) {
	dataset := writeDataset(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runArgs := []string{"--run-backend", "sqlite", "--run-db-connect", dbPath}

	_, err := runFairspot(t, append([]string{"runs", "migrate"}, runArgs...)...)
	require.NoError(t, err)

	_, err = runFairspot(t, append([]string{"audit", dataset, "--prediction", "approved", "--attributes", "race,sex"}, runArgs...)...)
	require.NoError(t, err)

	output, err := runFairspot(t, append([]string{"runs", "status"}, runArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, output, "Total Runs:")

	export := filepath.Join(t.TempDir(), "history")
	_, err = runFairspot(t, append([]string{"runs", "export", "--output-file", export}, runArgs...)...)
	require.NoError(t, err)
	assert.FileExists(t, export+".audit_runs.parquet")
	assert.FileExists(t, export+".metric_results.parquet")

	_, err = runFairspot(t, append([]string{"runs", "clear"}, runArgs...)...)
	require.NoError(t, err)
	assert.NoFileExists(t, dbPath)
}

// TestExploreTarget prints value counts of a column.
func TestExploreTarget(t *testing.T) {
	dataset := writeDataset(t)

	output, err := runFairspot(t, "explore", dataset, "--target", "race", "--run-backend", "none")
	require.NoError(t, err)
	assert.Contains(t, output, "10 rows")
	assert.Contains(t, output, "60.0%")
}
