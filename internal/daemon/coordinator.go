// Package daemon keeps a warm process per working tree: the store stays
// open, the embedding cache stays hot, and queries skip process startup. A
// unix socket under .seek/ carries newline-delimited JSON requests.
package daemon

import (
	"sync"
	"sync/atomic"

	"seek/internal/errs"
)

// Coordinator serializes syncs against queries. A sync holds the write side
// of the lock, so queries never observe a half-applied index; queries share
// the read side with each other. A second concurrent sync is rejected
// instead of queued.
type Coordinator struct {
	mu      sync.RWMutex
	syncing atomic.Int32 // 0 = idle, 1 = sync in progress
}

// BeginSync acquires the sync slot, then waits for in-flight queries to
// drain. A sync already holding the slot is a conflict, not a wait. The
// returned release function must be called exactly once.
func (c *Coordinator) BeginSync() (func(), error) {
	if !c.syncing.CompareAndSwap(0, 1) {
		return nil, errs.ErrSyncConflict
	}
	c.mu.Lock()
	return func() {
		c.mu.Unlock()
		c.syncing.Store(0)
	}, nil
}

// BeginRead acquires shared query access, blocking while a sync is applying.
// The returned release function must be called exactly once.
func (c *Coordinator) BeginRead() func() {
	c.mu.RLock()
	return c.mu.RUnlock
}

// Syncing reports whether a sync currently holds the slot.
func (c *Coordinator) Syncing() bool {
	return c.syncing.Load() == 1
}
