package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for run tracking.
const (
	auditRunsTable     = "fairspot_audit_runs"
	metricResultsTable = "fairspot_metric_results"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, false)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connHint(backend))
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}

	return &RunStoreImpl{db: db, backend: backend}, nil
}

func connHint(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
	case schema.PostgreSQLBackend:
		return "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
	default:
		return "Verify the database file is writable."
	}
}

// createRunTables applies the initial schema of the embedded migrations.
// Every statement is idempotent, so this is safe on migrated databases.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	dir, err := migrationDir(backend)
	if err != nil {
		return err
	}
	script, err := migrationsFS.ReadFile("migrations/" + dir + "/1_create_run_tables.up.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	for stmt := range strings.SplitSeq(string(script), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func bind(backend schema.DatabaseBackend, query string) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BeginRun creates a new audit run and returns its ID and UUID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, dataset string, configParams map[string]any) (int64, string, error) {
	if rs.db == nil {
		return 0, "", nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, "", fmt.Errorf("failed to marshal config params: %w", err)
	}
	runUUID := uuid.NewString()

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := bind(rs.backend, fmt.Sprintf(`INSERT INTO %s (run_uuid, dataset, start_time, config_params) VALUES (?, ?, ?, ?) RETURNING run_id`, auditRunsTable))
		err = rs.db.QueryRow(query, runUUID, dataset, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, dataset, start_time, config_params) VALUES (?, ?, ?, ?)`, auditRunsTable)
		var result sql.Result
		result, err = rs.db.Exec(query, runUUID, dataset, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert audit run: %w", err)
	}
	return runID, runUUID, nil
}

// EndRun updates the audit run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, totalRecords int, fair bool) error {
	if rs.db == nil {
		return nil
	}

	row := rs.db.QueryRow(bind(rs.backend, fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, auditRunsTable)), runID)
	startTime, err := scanTime(row, rs.backend)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	query := bind(rs.backend, fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_records = ?, fair = ?,
		total_results = (SELECT COUNT(*) FROM %s WHERE run_id = ?) WHERE run_id = ?`, auditRunsTable, metricResultsTable))
	if _, err := rs.db.Exec(query, formatTime(endTime, rs.backend), durationMs, totalRecords, fair, runID, runID); err != nil {
		return fmt.Errorf("failed to update audit run: %w", err)
	}
	return nil
}

// RecordResults stores the results of a run in one transaction, keeping their order.
func (rs *RunStoreImpl) RecordResults(runID int64, results []schema.MetricResult) error {
	if rs.db == nil || len(results) == 0 {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(bind(rs.backend, fmt.Sprintf(`
		INSERT INTO %s (run_id, seq, metric, attribute, stratum, group_value, reference_value,
		                value, sample_size, reference_sample_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, metricResultsTable)))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range results {
		if _, err := stmt.Exec(runID, i, string(r.Metric), r.Attribute, r.Stratum, r.Group, r.Reference,
			r.Value, r.SampleSize, r.ReferenceSampleSize); err != nil {
			return fmt.Errorf("failed to insert metric result %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStoreStatus, error) {
	status := schema.RunStoreStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", auditRunsTable))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row = rs.db.QueryRow(fmt.Sprintf("SELECT run_id, run_uuid FROM %s ORDER BY run_id DESC LIMIT 1", auditRunsTable))
		if err := row.Scan(&status.LastRunID, &status.LastRunUUID); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}

		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", auditRunsTable))
		last, err := scanTime(row, rs.backend)
		if err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		status.LastRunTime = last

		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", auditRunsTable))
		oldest, err := scanTime(row, rs.backend)
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldest
	}

	for _, table := range []string{auditRunsTable, metricResultsTable} {
		var count int64
		if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalResults = int(status.TableSizes[metricResultsTable])

	return status, nil
}

// GetAllRuns retrieves all audit runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.AuditRunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	rows, err := rs.db.Query(fmt.Sprintf(`SELECT run_id, run_uuid, dataset, start_time, end_time, run_duration_ms,
		total_records, total_results, fair, config_params FROM %s ORDER BY run_id`, auditRunsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.AuditRunRecord
	for rows.Next() {
		var record schema.AuditRunRecord
		if rs.backend == schema.SQLiteBackend {
			var startStr string
			var endStr *string
			if err := rows.Scan(&record.RunID, &record.RunUUID, &record.Dataset, &startStr, &endStr, &record.RunDurationMs,
				&record.TotalRecords, &record.TotalResults, &record.Fair, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan audit run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endStr != nil {
				end, err := time.Parse(time.RFC3339Nano, *endStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &end
			}
		} else if err := rows.Scan(&record.RunID, &record.RunUUID, &record.Dataset, &record.StartTime, &record.EndTime, &record.RunDurationMs,
			&record.TotalRecords, &record.TotalResults, &record.Fair, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit runs: %w", err)
	}
	return records, nil
}

// GetAllResults retrieves all metric results from the store.
func (rs *RunStoreImpl) GetAllResults() ([]schema.MetricResultRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	rows, err := rs.db.Query(fmt.Sprintf(`SELECT run_id, seq, metric, attribute, stratum, group_value, reference_value,
		value, sample_size, reference_sample_size FROM %s ORDER BY run_id, seq`, metricResultsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query metric results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.MetricResultRecord
	for rows.Next() {
		var r schema.MetricResultRecord
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Metric, &r.Attribute, &r.Stratum, &r.GroupValue, &r.ReferenceValue,
			&r.Value, &r.SampleSize, &r.ReferenceSampleSize); err != nil {
			return nil, fmt.Errorf("failed to scan metric result: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric results: %w", err)
	}
	return records, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// scanTime reads a single time column, which SQLite stores as text.
func scanTime(row *sql.Row, backend schema.DatabaseBackend) (time.Time, error) {
	if backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
