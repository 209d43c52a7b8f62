package runstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/fairspot/internal/parquet"
	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestClearRuns(t *testing.T) {
	t.Run("sqlite removes file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		store, err := NewRunStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearRuns(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		// Clearing twice is fine
		assert.NoError(t, ClearRuns(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("sqlite needs path", func(t *testing.T) {
		assert.ErrorContains(t, ClearRuns(schema.SQLiteBackend, "", ""), "dbFilePath cannot be empty")
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearRuns(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.ErrorContains(t, ClearRuns("oracle", "", ""), "unsupported run backend")
	})
}

func TestStoreManager(t *testing.T) {
	mgr := &StoreManager{}
	assert.Nil(t, mgr.GetRunStore())

	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)
	mgr.runs = store
	assert.Equal(t, store, mgr.GetRunStore())
}

func TestExecuteRunsExport(t *testing.T) {
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var buf bytes.Buffer
	out := filepath.Join(t.TempDir(), "export")

	err = ExecuteRunsExport(&buf, store, out)
	assert.ErrorContains(t, err, "no audit runs found")

	runID, _, err := store.BeginRun(sampleStart, "loans.csv", nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordResults(runID, sampleResults()))
	require.NoError(t, store.EndRun(runID, sampleStart.Add(time.Second), 12, true))

	require.NoError(t, ExecuteRunsExport(&buf, store, out))
	assert.Contains(t, buf.String(), "Exported 1 audit runs")
	assert.Contains(t, buf.String(), "Exported 4 metric results")

	for _, suffix := range []string{".audit_runs.parquet", ".metric_results.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	// Sanity check the conversion used by the export
	converted := parquet.ConvertMetricResultRecords([]schema.MetricResultRecord{{RunID: runID, Metric: "selection_rate"}})
	assert.Len(t, converted, 1)
}

func TestExecuteRunsExportValidation(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, ExecuteRunsExport(&buf, &MockRunStore{}, ""), "--output-file is required")
	assert.ErrorContains(t, ExecuteRunsExport(&buf, nil, "out"), "run tracking is disabled")

	store := &MockRunStore{}
	store.On("GetStatus").Return(schema.RunStoreStatus{}, assert.AnError)
	assert.ErrorIs(t, ExecuteRunsExport(&buf, store, "out"), assert.AnError)
	store.AssertExpectations(t)
}
