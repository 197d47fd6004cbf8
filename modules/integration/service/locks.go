package service

import (
	"sync"

	"github.com/google/uuid"
)

// syncLocks hands out one mutex per integration id so two syncs of the same
// integration can never interleave. Acquire is non-blocking: a second caller
// fails fast instead of queueing behind a sync that could run for minutes.
type syncLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSyncLocks() *syncLocks {
	return &syncLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// TryAcquire returns a release func, or false if a sync for this id is
// already running.
func (l *syncLocks) TryAcquire(id uuid.UUID) (func(), bool) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
