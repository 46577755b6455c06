// Package locking provides the per-shopper mutual exclusion used by the
// finalize step. Two backends implement the same port: an in-process keyed
// mutex for single-instance runs and a Redis lock for multi-instance
// deployments.
package locking

import (
	"context"
	"sync"
)

// LocalLocker is a keyed mutex: one mutex per shopper, created on first use.
// The map only ever grows, which is bounded by the seeded shopper set.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLocalLocker creates a new LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for one shopper, blocking until it is available.
// The returned function releases it.
func (l *LocalLocker) Lock(_ context.Context, shopperID int64) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[shopperID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[shopperID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
