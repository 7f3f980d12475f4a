package store

import "sync"

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock serializes writers per key without a global lock, so
// unrelated symbols never contend. Entries are reference-counted and
// dropped once the last holder releases.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

// NewKeyLock creates an empty keyed lock set.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLockEntry)}
}

// Lock acquires the lock for key and returns its release func.
func (l *KeyLock) Lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
