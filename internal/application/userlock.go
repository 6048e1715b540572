package application

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks serializes subscription creation per user. The duplicate check
// and insert are otherwise a check-then-act pair; the database's partial
// unique index is the backstop, this keeps the common path conflict-free.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*userLock)}
}

// lock acquires the mutex for the user and returns the unlock function.
func (l *userLocks) lock(userID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
