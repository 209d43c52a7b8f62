package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/runstore"
	"github.com/huangsam/fairspot/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsBackendSetup resolves the run store settings from config file, env and flags
// without the dataset validation of sharedSetup.
func runsBackendSetup() error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("run-backend")))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("run-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsSetupWrapper loads the run store for status and export.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	if err := runsBackendSetup(); err != nil {
		return err
	}
	if err := runstore.InitStore(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	return nil
}

// runsMigrateSetupWrapper does NOT initialize the store or create tables,
// allowing clear and migrate to work on a fresh or broken database.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsBackendSetup()
}

// sqliteRunDBPath returns the SQLite file the run store uses.
func sqliteRunDBPath() string {
	if cfg.RunDBConnect != "" {
		return cfg.RunDBConnect
	}
	return contract.GetRunDBFilePath()
}

// runsCmd focused on run history management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage audit run history (status, export, clear, migrate)",
	Long: `Manage the history of audit runs recorded by audit, check, monitor and serve.

Every audit stores its configuration, verdict summary and the full ordered list of
metric results in the run store.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
- status: Show run store status and statistics
- export: Export runs and results to Parquet
- clear: Delete all recorded runs
- migrate: Run database schema migrations

Configure with --run-backend and --run-db-connect.`,
}

// runsClearCmd clears all run data.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded audit runs",
	Long: `Remove all audit runs and metric results from the run store.

For SQLite the database file is deleted. For MySQL and PostgreSQL the run
tables are dropped and recreated on next use.

Examples:
  # Clear the default SQLite history
  fairspot runs clear

  # Clear a shared PostgreSQL store
  fairspot runs clear --run-backend postgresql --run-db-connect "$FAIRSPOT_RUN_DB_CONNECT"`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runstore.ClearRuns(cfg.RunBackend, sqliteRunDBPath(), cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear runs", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run store status and statistics.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run store status and statistics",
	Long: `Display run store information.

Shows:
- Backend type and connection status
- Total audit runs and metric results recorded
- Last and oldest run timestamps
- Row counts per table

Examples:
  # Check run tracking status
  fairspot runs status`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := runstore.Manager.GetRunStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		runstore.PrintRunStatus(os.Stdout, status)
	},
}

// runsExportCmd exports run data to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all recorded runs to Parquet format for use with analytics tools.

Exports two datasets next to --output-file:
- <name>.audit_runs.parquet - one row per audit run
- <name>.metric_results.parquet - every metric result, in run order

Requires: --output-file parameter

Examples:
  # Export all data
  fairspot runs export --output-file fairness-history

  # Track disparate impact over time with DuckDB
  duckdb -c "SELECT run_id, value FROM read_parquet('fairness-history.metric_results.parquet') WHERE metric = 'disparate_impact'"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runstore.ExecuteRunsExport(os.Stdout, runstore.Manager.GetRunStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export runs", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  fairspot runs migrate

  # Migrate to specific version
  fairspot runs migrate --target-version 1

  # Rollback to initial state
  fairspot runs migrate --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := runstore.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
