package app

import "sync"

// sessionLocks hands out one mutex per live session id so message appends
// within a session are serialized while different sessions proceed in
// parallel. Entries are reference counted and dropped when idle, so the map
// does not grow with session history.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uint]*sessionLockEntry
}

type sessionLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[uint]*sessionLockEntry)}
}

// Acquire blocks until the session's lock is held and returns the release
// function.
func (l *sessionLocks) Acquire(sessionID uint) func() {
	l.mu.Lock()
	e := l.entries[sessionID]
	if e == nil {
		e = &sessionLockEntry{}
		l.entries[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}
