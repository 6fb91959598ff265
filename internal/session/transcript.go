package session

import "sync"

// Transcript is the append-only conversation record and the session's
// source of truth. Entries are never mutated or deleted; sequence numbers
// are assigned on append and are strictly increasing with no gaps.
//
// Appends only ever happen while the TurnLock is held, so serialization is
// given by the lock discipline; the internal mutex is a guard against
// misuse, not the primary synchronization.
type Transcript struct {
	mu      sync.Mutex
	entries []Utterance
	sealed  bool
}

// Append assigns the next sequence number and inserts the utterance,
// returning the stored entry. Appends to a sealed transcript are dropped
// and return false.
func (t *Transcript) Append(sp Speaker, text string) (Utterance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return Utterance{}, false
	}
	u := Utterance{Speaker: sp, Text: text, Sequence: len(t.entries)}
	t.entries = append(t.entries, u)
	return u, true
}

// Snapshot returns an immutable copy of the transcript in order.
func (t *Transcript) Snapshot() []Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Utterance, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Seal permanently disables further appends. Called at session teardown so
// no abandoned turn can write after Ended.
func (t *Transcript) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}
