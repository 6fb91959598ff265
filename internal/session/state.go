package session

import (
	"sync"

	"github.com/google/uuid"
)

// State holds everything owned by one interview session. It is created by
// the controller at session start and mutated turn-by-turn by the
// orchestrator; only the controller's EndSession writes it past the lock.
type State struct {
	ID uuid.UUID

	transcript *Transcript
	lock       *TurnLock
	ictx       InterviewContext

	mu      sync.Mutex
	phase   Phase
	report  *Report
	frozen  []Utterance // transcript snapshot taken at Ended, kept for scoring retries
	lastErr string
}

// Snapshot is the read-only view returned to the UI.
type Snapshot struct {
	SessionID  uuid.UUID   `json:"sessionId"`
	Phase      Phase       `json:"phase"`
	Transcript []Utterance `json:"transcript"`
	Report     *Report     `json:"report,omitempty"`
	LastError  string      `json:"lastError,omitempty"`
}

// NewState creates a fresh session state with phase Idle and an empty
// transcript.
func NewState(ic InterviewContext) *State {
	return &State{
		ID:         uuid.New(),
		transcript: &Transcript{},
		lock:       &TurnLock{},
		ictx:       ic,
		phase:      PhaseIdle,
	}
}

// Context returns the static interview context.
func (s *State) Context() InterviewContext { return s.ictx }

// Lock exposes the session's turn lock.
func (s *State) Lock() *TurnLock { return s.lock }

// Transcript exposes the session's transcript store.
func (s *State) Transcript() *Transcript { return s.transcript }

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Observe returns a consistent read-only snapshot for UI polling.
func (s *State) Observe() Snapshot {
	s.mu.Lock()
	phase, rep, lastErr, frozen := s.phase, s.report, s.lastErr, s.frozen
	s.mu.Unlock()
	var entries []Utterance
	if frozen != nil {
		entries = frozen
	} else {
		entries = s.transcript.Snapshot()
	}
	return Snapshot{
		SessionID:  s.ID,
		Phase:      phase,
		Transcript: entries,
		Report:     rep,
		LastError:  lastErr,
	}
}

// setPhase moves to p unless the session has already ended. Reports whether
// the phase changed.
func (s *State) setPhase(p Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded || s.phase == p {
		return false
	}
	s.phase = p
	return true
}

// setPhaseOwned moves to p only while turnID still owns the lock. This is
// the phase-level stale guard: an abandoned turn cannot drag the UI out of
// Idle or Ended.
func (s *State) setPhaseOwned(turnID uuid.UUID, p Phase) bool {
	if !s.lock.OwnedBy(turnID) {
		return false
	}
	return s.setPhase(p)
}

func (s *State) setLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// end transitions to Ended, seals the transcript, and freezes the snapshot
// used for scoring. Idempotent; returns the frozen snapshot.
func (s *State) end() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded {
		return s.frozen
	}
	s.phase = PhaseEnded
	s.transcript.Seal()
	s.frozen = s.transcript.Snapshot()
	return s.frozen
}

func (s *State) setReport(r Report) {
	s.mu.Lock()
	s.report = &r
	s.mu.Unlock()
}
