package runstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRuns_NoneBackend(t *testing.T) {
	err := MigrateRuns(schema.NoneBackend, "", -1)
	assert.ErrorContains(t, err, "migrations are not supported for NoneBackend")
}

func TestMigrateRuns_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")

	// Run migration to latest version (should go to version 1)
	require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, -1))
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	// Run migration again (should be a no-op)
	assert.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, -1))
	assert.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 1))

	// Rollback to version 0 and back up
	assert.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 0))
	assert.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 1))
}

func TestMigrateRuns_ThenStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, -1))

	store, err := NewRunStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, _, err := store.BeginRun(sampleStart, "loans.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)
}

func TestMigrationDir(t *testing.T) {
	for backend, dir := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "postgres",
	} {
		got, err := migrationDir(backend)
		require.NoError(t, err)
		assert.Equal(t, dir, got)

		up, err := migrationsFS.ReadFile("migrations/" + dir + "/1_create_run_tables.up.sql")
		require.NoError(t, err)
		assert.Contains(t, string(up), metricResultsTable)
	}

	_, err := migrationDir(schema.NoneBackend)
	assert.Error(t, err)
}
