package iostore

import (
	"context"
	"iter"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetSnapshotStore implements the StoreManager interface.
func (m *MockStoreManager) GetSnapshotStore() contract.SnapshotStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.SnapshotStore)
	return store
}

// GetAuditStore implements the StoreManager interface.
func (m *MockStoreManager) GetAuditStore() contract.AuditStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.AuditStore)
	return store
}

// MockSnapshotStore is a mock implementation of SnapshotStore for testing.
// List yields the snapshots passed as the first return value.
type MockSnapshotStore struct {
	mock.Mock
}

var _ contract.SnapshotStore = &MockSnapshotStore{} // Compile-time check

// Put implements the SnapshotStore interface.
func (m *MockSnapshotStore) Put(ctx context.Context, snap schema.Snapshot) (bool, error) {
	args := m.Called(ctx, snap)
	return args.Bool(0), args.Error(1)
}

// List implements the SnapshotStore interface.
func (m *MockSnapshotStore) List(ctx context.Context) iter.Seq2[schema.Snapshot, error] {
	args := m.Called(ctx)
	snaps, _ := args.Get(0).([]schema.Snapshot)
	listErr := args.Error(1)
	return func(yield func(schema.Snapshot, error) bool) {
		for _, snap := range snaps {
			if !yield(snap, nil) {
				return
			}
		}
		if listErr != nil {
			yield(schema.Snapshot{}, listErr)
		}
	}
}

// Status implements the SnapshotStore interface.
func (m *MockSnapshotStore) Status() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the SnapshotStore interface.
func (m *MockSnapshotStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAuditStore is a mock implementation of AuditStore for testing.
type MockAuditStore struct {
	mock.Mock
}

var _ contract.AuditStore = &MockAuditStore{} // Compile-time check

// Record implements the AuditStore interface.
func (m *MockAuditStore) Record(fetchedAt time.Time, raw []byte) (string, error) {
	args := m.Called(fetchedAt, raw)
	return args.String(0), args.Error(1)
}
