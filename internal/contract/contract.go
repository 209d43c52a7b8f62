// Package contract provides interfaces and shared utilities for fairspot's internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/fairspot/schema"
)

// StoreManager defines the interface for managing the run store.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetRunStore() RunStore
}

// RunStore defines the interface for tracking audit runs and storing their results.
type RunStore interface {
	// BeginRun creates a new audit run and returns its numeric ID and UUID
	BeginRun(startTime time.Time, dataset string, configParams map[string]any) (int64, string, error)

	// EndRun updates the audit run with completion data
	EndRun(runID int64, endTime time.Time, totalRecords int, fair bool) error

	// RecordResults stores the metric results of a run in order
	RecordResults(runID int64, results []schema.MetricResult) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStoreStatus, error)

	// GetAllRuns retrieves all audit runs ordered by ID
	GetAllRuns() ([]schema.AuditRunRecord, error)

	// GetAllResults retrieves all metric results ordered by run and sequence
	GetAllResults() ([]schema.MetricResultRecord, error)

	// Close closes the underlying connection
	Close() error
}
