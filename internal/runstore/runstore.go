// Package runstore is for tracking audit runs and their metric results.
package runstore

import (
	"sync"

	"github.com/huangsam/fairspot/internal/contract"
)

// StoreManager owns the RunStore instance of the process.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	runs         contract.RunStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetRunStore returns the RunStore.
func (mgr *StoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
