package runstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/parquet"
)

// ExecuteRunsExport writes every stored run and result to Parquet files
// named after outputFile.
func ExecuteRunsExport(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is disabled")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no audit runs found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total audit runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total metric results: %d\n", status.TableSizes[metricResultsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve audit runs: %w", err)
	}
	results, err := store.GetAllResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve metric results: %w", err)
	}

	parquetRuns := parquet.ConvertAuditRunRecords(runs)
	runsFile := outputFile + ".audit_runs.parquet"
	if err := parquet.WriteAuditRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write audit runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d audit runs to: %s\n", len(parquetRuns), runsFile)

	parquetResults := parquet.ConvertMetricResultRecords(results)
	resultsFile := outputFile + ".metric_results.parquet"
	if err := parquet.WriteMetricResultsParquet(parquetResults, resultsFile); err != nil {
		return fmt.Errorf("failed to write metric results: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d metric results to: %s\n", len(parquetResults), resultsFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow) or Spark.")
	return nil
}
