package settlement

import "sync"

// groupLocks hands out one mutex per group ID. Entries are dropped once no
// goroutine holds or waits for them.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the caller owns groupID and returns the matching unlock.
func (l *groupLocks) lock(groupID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*groupLock)
	}
	gl, ok := l.locks[groupID]
	if !ok {
		gl = &groupLock{}
		l.locks[groupID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()

	return func() {
		gl.mu.Unlock()

		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, groupID)
		}
		l.mu.Unlock()
	}
}
