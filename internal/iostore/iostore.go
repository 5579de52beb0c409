// Package iostore persists decoded snapshots and raw page captures.
package iostore

import (
	"sync"

	"github.com/huangsam/casetrend/internal/contract"
)

// StoreManager holds the configured snapshot and audit stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	snapshots    contract.SnapshotStore
	audit        contract.AuditStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager wraps already opened stores. A nil audit store discards captures.
func NewStoreManager(snapshots contract.SnapshotStore, audit contract.AuditStore) *StoreManager {
	if audit == nil {
		audit = NopAuditStore{}
	}
	return &StoreManager{snapshots: snapshots, audit: audit}
}

// GetSnapshotStore returns the SnapshotStore.
func (mgr *StoreManager) GetSnapshotStore() contract.SnapshotStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.snapshots
}

// GetAuditStore returns the AuditStore.
func (mgr *StoreManager) GetAuditStore() contract.AuditStore {
	mgr.RLock()
	defer mgr.RUnlock()
	if mgr.audit == nil {
		return NopAuditStore{}
	}
	return mgr.audit
}
