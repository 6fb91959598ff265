package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TurnLock is a single-owner, non-blocking mutual exclusion primitive with
// an acquisition deadline. A blocking mutex is wrong here: the critical
// section spans external calls of unbounded latency, and the session must
// stay responsive to an unrelated end-session request while a turn is
// pending. Expiry is enforced cooperatively by the orchestrator's watchdog,
// not by preempting the holder.
type TurnLock struct {
	mu       sync.Mutex
	held     bool
	owner    uuid.UUID
	deadline time.Time
}

// TryAcquire attempts to take the lock for turnID. It never blocks: it
// returns false if the lock is already held, regardless of owner. On
// success the deadline is set to now+ttl. A non-positive ttl is rejected
// since the deadline must be in the future at acquisition time.
func (l *TurnLock) TryAcquire(turnID uuid.UUID, ttl time.Duration) bool {
	if turnID == uuid.Nil || ttl <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false
	}
	l.held = true
	l.owner = turnID
	l.deadline = time.Now().Add(ttl)
	return true
}

// Release clears the lock iff turnID is the current owner. A stale release
// (wrong owner, or lock not held) is a no-op returning false; it must never
// corrupt the state of a turn that has since taken ownership.
func (l *TurnLock) Release(turnID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || l.owner != turnID {
		return false
	}
	l.clearLocked()
	return true
}

// ForceRelease unconditionally clears the lock regardless of owner. Used
// only by the expiry watchdog and by session teardown.
func (l *TurnLock) ForceRelease() {
	l.mu.Lock()
	l.clearLocked()
	l.mu.Unlock()
}

// IsExpired reports whether the lock is held past its deadline.
func (l *TurnLock) IsExpired(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && now.After(l.deadline)
}

// Owner returns the current owner, if any.
func (l *TurnLock) Owner() (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner, l.held
}

// Held reports whether the lock is currently held.
func (l *TurnLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// OwnedBy reports whether turnID currently owns the lock. This is the
// stale-result guard: a dispatched call's result is only applied while its
// turnID still owns the lock.
func (l *TurnLock) OwnedBy(turnID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.owner == turnID
}

func (l *TurnLock) clearLocked() {
	l.held = false
	l.owner = uuid.Nil
	l.deadline = time.Time{}
}
