package store

import "sync"

// shaLocks serializes custody, metadata and analysis writes per SHA-256.
// The store is the sole writer to its tree, so in-process advisory locking
// is sufficient; two concurrent operations on the same artifact are
// recorded in the order the lock was acquired.
type shaLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSHALocks() *shaLocks {
	return &shaLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *shaLocks) lock(sha string) func() {
	l.mu.Lock()
	m, ok := l.locks[sha]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sha] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
