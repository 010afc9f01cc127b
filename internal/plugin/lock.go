package plugin

import "sync"

// updateLock is the process-wide guard for registry mirror mutations.
// It is advisory within a single process only; separate spin invocations
// are not coordinated by it.
var updateLock UpdateLock

// UpdateLock serializes registry mirror refreshes. The zero value is a
// free lock.
type UpdateLock struct {
	mu sync.Mutex
}

// UpdateGuard is a scoped hold on an UpdateLock. Callers must defer
// Release so the lock is freed on every exit path.
type UpdateGuard struct {
	lock   *UpdateLock
	denied bool
	once   sync.Once
}

// LockUpdates attempts a non-blocking acquire. The returned guard reports
// Denied when another update already holds the lock; a denied guard's
// Release is a no-op.
func (l *UpdateLock) LockUpdates() *UpdateGuard {
	if l.mu.TryLock() {
		return &UpdateGuard{lock: l}
	}
	return &UpdateGuard{denied: true}
}

// Denied reports whether the acquire was refused because another update
// is in progress.
func (g *UpdateGuard) Denied() bool { return g.denied }

// Release frees the lock. Safe to call more than once.
func (g *UpdateGuard) Release() {
	if g.denied {
		return
	}
	g.once.Do(g.lock.mu.Unlock)
}
