package runstore

import (
	"time"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, dataset string, configParams map[string]any) (int64, string, error) {
	args := m.Called(startTime, dataset, configParams)
	return args.Get(0).(int64), args.String(1), args.Error(2)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, totalRecords int, fair bool) error {
	args := m.Called(runID, endTime, totalRecords, fair)
	return args.Error(0)
}

// RecordResults implements the RunStore interface.
func (m *MockRunStore) RecordResults(runID int64, results []schema.MetricResult) error {
	args := m.Called(runID, results)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStoreStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.AuditRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.AuditRunRecord)
	return runs, args.Error(1)
}

// GetAllResults implements the RunStore interface.
func (m *MockRunStore) GetAllResults() ([]schema.MetricResultRecord, error) {
	args := m.Called()
	results, _ := args.Get(0).([]schema.MetricResultRecord)
	return results, args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
