package iocache

import (
	"time"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetCacheStore implements the CacheManager interface.
func (m *MockCacheManager) GetCacheStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetResultsStore implements the CacheManager interface.
func (m *MockCacheManager) GetResultsStore() contract.ResultsStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ResultsStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockResultsStore is a mock implementation of ResultsStore for testing.
type MockResultsStore struct {
	mock.Mock
}

var _ contract.ResultsStore = &MockResultsStore{} // Compile-time check

// BeginRun implements the ResultsStore interface.
func (m *MockResultsStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the ResultsStore interface.
func (m *MockResultsStore) EndRun(runID int64, endTime time.Time, succeeded, skipped int) error {
	args := m.Called(runID, endTime, succeeded, skipped)
	return args.Error(0)
}

// RecordRepo implements the ResultsStore interface.
func (m *MockResultsStore) RecordRepo(runID int64, record schema.RepoMetricRecord) error {
	args := m.Called(runID, record)
	return args.Error(0)
}

// GetStatus implements the ResultsStore interface.
func (m *MockResultsStore) GetStatus() (schema.ResultsStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ResultsStatus), args.Error(1)
}

// GetAllRuns implements the ResultsStore interface.
func (m *MockResultsStore) GetAllRuns() ([]schema.ScanRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.ScanRunRecord)
	return runs, args.Error(1)
}

// GetAllRepoResults implements the ResultsStore interface.
func (m *MockResultsStore) GetAllRepoResults() ([]schema.RepoResultRecord, error) {
	args := m.Called()
	results, _ := args.Get(0).([]schema.RepoResultRecord)
	return results, args.Error(1)
}

// Close implements the ResultsStore interface.
func (m *MockResultsStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
