package application

import "sync"

// LockTable hands out one exclusive lock per session so concurrent
// admissions, attempt-counter increments, and sweeps against the same session
// serialize without coordinating across sessions. Services sharing a session
// store must share a table.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockTable constructs an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*sync.Mutex)}
}

// ForSession returns the lock guarding the given session, creating it on
// first use. Locks are never discarded; the population is bounded by the
// number of live sessions in the process.
func (l *LockTable) ForSession(sessionID string) *sync.Mutex {
	if l == nil {
		return &sync.Mutex{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	return lock
}
