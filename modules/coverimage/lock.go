package coverimage

import (
	"sync"

	"portada-media-server/modules/common/generr"
)

// TenantLock - at most one batch run per tenant at a time. A second batch for
// the same tenant is rejected immediately with a typed concurrency error
// rather than queued; queueing would hide stale batches behind fresh ones.
type TenantLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewTenantLock - empty lock table.
func NewTenantLock() *TenantLock {
	return &TenantLock{held: make(map[string]bool)}
}

// Acquire - take the tenant's slot or fail fast.
func (l *TenantLock) Acquire(tenantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[tenantID] {
		return generr.New(generr.CodeConcurrency, "a batch is already running for tenant %s", tenantID)
	}
	l.held[tenantID] = true
	return nil
}

// Release - free the tenant's slot. Safe to call when not held.
func (l *TenantLock) Release(tenantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, tenantID)
}

// Held - current state, for status endpoints and tests.
func (l *TenantLock) Held(tenantID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[tenantID]
}
