package orchestrator

import "sync"

// appLocks serializes mutating operations per app. Different apps proceed in
// parallel; two cycles for the same app never interleave.
type appLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAppLocks() *appLocks {
	return &appLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the app's lock is held and returns the release func.
func (l *appLocks) Acquire(appName string) func() {
	l.mu.Lock()
	m, ok := l.locks[appName]
	if !ok {
		m = &sync.Mutex{}
		l.locks[appName] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
