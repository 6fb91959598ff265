package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTurnLock_SingleOwner(t *testing.T) {
	var l TurnLock
	a, b := uuid.New(), uuid.New()

	if !l.TryAcquire(a, time.Second) {
		t.Fatalf("expected first acquire to succeed")
	}
	// held lock rejects every acquire attempt, same or different turn id
	if l.TryAcquire(b, time.Second) {
		t.Fatalf("expected acquire to fail while held")
	}
	if l.TryAcquire(a, time.Second) {
		t.Fatalf("expected re-acquire by owner to fail while held")
	}
	owner, held := l.Owner()
	if !held || owner != a {
		t.Fatalf("expected owner %v, got %v held=%v", a, owner, held)
	}
}

func TestTurnLock_StaleReleaseIsNoOp(t *testing.T) {
	var l TurnLock
	a, b := uuid.New(), uuid.New()
	if !l.TryAcquire(a, time.Second) {
		t.Fatalf("acquire failed")
	}
	if l.Release(b) {
		t.Fatalf("non-owner release must fail")
	}
	if !l.Held() {
		t.Fatalf("stale release must not clear the lock")
	}
	if !l.Release(a) {
		t.Fatalf("owner release must succeed")
	}
	// second release by the same turn id is a no-op
	if l.Release(a) {
		t.Fatalf("double release must fail")
	}
	if l.Held() {
		t.Fatalf("lock should be free")
	}
}

func TestTurnLock_ForceRelease(t *testing.T) {
	var l TurnLock
	a := uuid.New()
	if !l.TryAcquire(a, time.Second) {
		t.Fatalf("acquire failed")
	}
	l.ForceRelease()
	if l.Held() {
		t.Fatalf("force release must clear the lock")
	}
	// force release of a free lock is harmless
	l.ForceRelease()
	if !l.TryAcquire(uuid.New(), time.Second) {
		t.Fatalf("lock should be acquirable after force release")
	}
}

func TestTurnLock_Expiry(t *testing.T) {
	var l TurnLock
	a := uuid.New()
	if !l.TryAcquire(a, 10*time.Millisecond) {
		t.Fatalf("acquire failed")
	}
	if l.IsExpired(time.Now()) {
		t.Fatalf("fresh lock must not be expired")
	}
	if !l.IsExpired(time.Now().Add(time.Second)) {
		t.Fatalf("lock should be expired past its deadline")
	}
	l.ForceRelease()
	if l.IsExpired(time.Now().Add(time.Hour)) {
		t.Fatalf("free lock is never expired")
	}
}

func TestTurnLock_RejectsBadArguments(t *testing.T) {
	var l TurnLock
	if l.TryAcquire(uuid.Nil, time.Second) {
		t.Fatalf("nil turn id must be rejected")
	}
	if l.TryAcquire(uuid.New(), 0) {
		t.Fatalf("non-positive ttl must be rejected")
	}
	if l.Held() {
		t.Fatalf("rejected acquires must not mutate the lock")
	}
}

func TestTurnLock_OwnedBy(t *testing.T) {
	var l TurnLock
	a := uuid.New()
	if l.OwnedBy(a) {
		t.Fatalf("free lock is owned by nobody")
	}
	l.TryAcquire(a, time.Second)
	if !l.OwnedBy(a) {
		t.Fatalf("expected ownership")
	}
	if l.OwnedBy(uuid.New()) {
		t.Fatalf("wrong turn id must not own")
	}
}
