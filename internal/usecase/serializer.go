package usecase

import "sync"

// serializer hands out per-session exclusive execution locks: no two
// actions for the same session ever run concurrently, while actions for
// different sessions proceed fully in parallel. Entries are refcounted so
// reaped sessions do not leak locks.
type serializer struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSerializer() *serializer {
	return &serializer{
		locks: make(map[string]*sessionLock),
	}
}

// Acquire - blocks until the session's exclusive lock is held and returns
// the release function.
func (that *serializer) Acquire(sessionID string) func() {
	that.mu.Lock()
	lock, ok := that.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		that.locks[sessionID] = lock
	}
	lock.refs++
	that.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		that.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, sessionID)
		}
		that.mu.Unlock()
	}
}
