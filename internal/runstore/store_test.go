package runstore

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleResults() []schema.MetricResult {
	return []schema.MetricResult{
		{Metric: schema.SelectionRate, Attribute: "race", Group: "X", Value: ptr(0.5), SampleSize: 4},
		{Metric: schema.SelectionRate, Attribute: "race", Group: "Y", Value: ptr(0.25), SampleSize: 8},
		{Metric: schema.DisparateImpact, Attribute: "race", Group: "X", Reference: "Y", Value: ptr(2), SampleSize: 4, ReferenceSampleSize: 8},
		{Metric: schema.DisparateImpact, Attribute: "race", Group: "Z", Reference: "Y", SampleSize: 0, ReferenceSampleSize: 8},
	}
}

func TestRunStore_NoneBackend(t *testing.T) {
	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	// BeginRun should return zero values for NoneBackend
	runID, runUUID, err := store.BeginRun(time.Now(), "loans.csv", map[string]any{"test": "value"})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)
	assert.Empty(t, runUUID)

	assert.NoError(t, store.RecordResults(1, sampleResults()))
	assert.NoError(t, store.EndRun(1, time.Now(), 10, true))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)

	assert.NoError(t, store.Close())
}

func TestRunStore_SQLite(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runID, runUUID, err := store.BeginRun(startTime, "loans.csv", map[string]any{"attributes": "race"})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))
	assert.Len(t, runUUID, 36)

	require.NoError(t, store.RecordResults(runID, sampleResults()))
	require.NoError(t, store.EndRun(runID, startTime.Add(1500*time.Millisecond), 12, false))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, runUUID, run.RunUUID)
	assert.Equal(t, "loans.csv", run.Dataset)
	assert.True(t, startTime.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(12), run.TotalRecords)
	assert.Equal(t, int32(4), run.TotalResults)
	require.NotNil(t, run.Fair)
	assert.False(t, *run.Fair)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"attributes":"race"}`, *run.ConfigParams)

	results, err := store.GetAllResults()
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, int32(i), r.Seq)
		assert.Equal(t, runID, r.RunID)
	}
	assert.Equal(t, "selection_rate", results[0].Metric)
	assert.Equal(t, "Y", results[2].ReferenceValue)
	assert.Equal(t, int32(8), results[2].ReferenceSampleSize)
	require.NotNil(t, results[2].Value)
	assert.InDelta(t, 2.0, *results[2].Value, 1e-9)
	assert.Nil(t, results[3].Value)
}

func TestRunStore_SQLiteStatus(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalRuns)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		start := first.Add(time.Duration(i) * time.Hour)
		runID, _, err := store.BeginRun(start, "loans.csv", nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordResults(runID, sampleResults()[:2]))
		require.NoError(t, store.EndRun(runID, start.Add(time.Second), 12, true))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Equal(t, 3, status.TotalRuns)
	assert.Equal(t, int64(3), status.LastRunID)
	assert.NotEmpty(t, status.LastRunUUID)
	assert.True(t, first.Add(2*time.Hour).Equal(status.LastRunTime))
	assert.True(t, first.Equal(status.OldestRunTime))
	assert.Equal(t, 6, status.TotalResults)
	assert.Equal(t, int64(3), status.TableSizes[auditRunsTable])
	assert.Equal(t, int64(6), status.TableSizes[metricResultsTable])

	var buf bytes.Buffer
	PrintRunStatus(&buf, status)
	assert.Contains(t, buf.String(), "Run Backend: sqlite")
	assert.Contains(t, buf.String(), "Total Runs: 3")
	assert.Contains(t, buf.String(), "fairspot_metric_results: 6 rows")
}

func TestRunStore_RecordResultsEmpty(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, _, err := store.BeginRun(time.Now(), "loans.csv", nil)
	require.NoError(t, err)
	assert.NoError(t, store.RecordResults(runID, nil))
}

func TestRunStore_EndRunUnknown(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.EndRun(42, time.Now(), 1, true)
	assert.ErrorContains(t, err, "failed to get start_time for run 42")
}

func TestRunStore_SQLiteFilePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	store, err := NewRunStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_, _, err = store.BeginRun(time.Now(), "loans.csv", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewRunStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.GetAllRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestBind(t *testing.T) {
	query := "UPDATE t SET a = ?, b = ? WHERE c = ?"
	assert.Equal(t, query, bind(schema.SQLiteBackend, query))
	assert.Equal(t, query, bind(schema.MySQLBackend, query))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE c = $3", bind(schema.PostgreSQLBackend, query))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`fairspot_audit_runs`", quoteTableName(schema.MySQLBackend, auditRunsTable))
	assert.Equal(t, `"fairspot_audit_runs"`, quoteTableName(schema.PostgreSQLBackend, auditRunsTable))
}
