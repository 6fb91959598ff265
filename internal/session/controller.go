package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Archiver persists a finished interview somewhere durable. Optional.
type Archiver interface {
	Archive(ctx context.Context, sessionID uuid.UUID, transcript []Utterance, rep *Report) error
}

// Controller owns the orchestrator lifecycle for the single logical session
// and routes user-initiated requests. EndSession is the designated escape
// hatch: it bypasses the lock contract and must never be blockable by a
// stuck turn.
type Controller struct {
	orch      *Orchestrator
	scorer    Scorer
	speech    SpeechOutput
	archive   Archiver
	log       *slog.Logger
	listeners Listeners

	stateMu sync.Mutex
	state   *State
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithArchiver enables archiving of finished sessions.
func WithArchiver(a Archiver) ControllerOption {
	return func(c *Controller) { c.archive = a }
}

// WithControllerLogger sets the structured logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithControllerListeners sets event callbacks (report delivery).
func WithControllerListeners(ls Listeners) ControllerOption {
	return func(c *Controller) { c.listeners = ls }
}

// NewController wires the orchestrator, the scorer, and the speech output
// used for teardown halting.
func NewController(orch *Orchestrator, scorer Scorer, speech SpeechOutput, opts ...ControllerOption) *Controller {
	c := &Controller{
		orch:   orch,
		scorer: scorer,
		speech: speech,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession replaces any previous session with a fresh one and runs the
// opening turn (no user audio) so the agent asks its first question. The
// previous session's transcript is discarded at this point.
func (c *Controller) StartSession(ctx context.Context, resumeText, jobDescription string) (Snapshot, error) {
	s := NewState(InterviewContext{ResumeText: resumeText, JobDescription: jobDescription})
	c.stateMu.Lock()
	old := c.state
	c.state = s
	c.stateMu.Unlock()
	if old != nil && old.Phase() != PhaseEnded {
		// A replaced session is torn down silently; no report.
		c.speech.Halt()
		old.lock.ForceRelease()
		old.end()
	}
	c.log.Info("session started", "session_id", s.ID)

	if err := c.orch.RunTurn(ctx, s, nil); err != nil {
		c.log.Error("opening turn failed", "session_id", s.ID, "error", err)
		return s.Observe(), err
	}
	return s.Observe(), nil
}

// RequestTurn is the push-to-talk entry point. audio is the recorded user
// clip. Rejected as a no-op unless the session is Idle.
func (c *Controller) RequestTurn(ctx context.Context, audio []byte) error {
	s := c.current()
	if s == nil {
		return ErrNoSession
	}
	switch s.Phase() {
	case PhaseEnded:
		return ErrSessionEnded
	case PhaseIdle:
	default:
		return ErrTurnInProgress
	}
	return c.orch.RunTurn(ctx, s, audio)
}

// EndSession unconditionally tears the session down: playback is halted,
// the lock is force-released regardless of owner, the transcript is frozen,
// and the scorer runs on the frozen snapshot. Scoring failure leaves the
// session Ended; RetryScoring can re-run scoring without re-interviewing.
func (c *Controller) EndSession(ctx context.Context) (Report, error) {
	s := c.current()
	if s == nil {
		return Report{}, ErrNoSession
	}
	c.speech.Halt()
	s.lock.ForceRelease()
	frozen := s.end()
	c.notifyPhase(PhaseEnded)
	c.log.Info("session ended", "session_id", s.ID, "utterances", len(frozen))
	return c.score(ctx, s, frozen)
}

// RetryScoring re-runs report generation on the frozen transcript of the
// ended session.
func (c *Controller) RetryScoring(ctx context.Context) (Report, error) {
	s := c.current()
	if s == nil {
		return Report{}, ErrNoSession
	}
	if s.Phase() != PhaseEnded {
		return Report{}, fmt.Errorf("%w: session still active", ErrScoring)
	}
	return c.score(ctx, s, s.Observe().Transcript)
}

// Observe returns a read-only snapshot of the current session.
func (c *Controller) Observe() (Snapshot, bool) {
	s := c.current()
	if s == nil {
		return Snapshot{}, false
	}
	return s.Observe(), true
}

func (c *Controller) score(ctx context.Context, s *State, frozen []Utterance) (Report, error) {
	if len(frozen) == 0 {
		return Report{}, fmt.Errorf("%w: empty conversation", ErrScoring)
	}
	rep, err := c.scorer.Score(ctx, frozen, s.Context())
	if err != nil {
		c.log.Error("scoring failed", "session_id", s.ID, "error", err)
		return Report{}, fmt.Errorf("%w: %v", ErrScoring, err)
	}
	s.setReport(rep)
	if c.listeners.OnReport != nil {
		c.listeners.OnReport(rep)
	}
	if c.archive != nil {
		go func() {
			if err := c.archive.Archive(context.Background(), s.ID, frozen, &rep); err != nil {
				c.log.Error("session archive failed", "session_id", s.ID, "error", err)
			}
		}()
	}
	return rep, nil
}

func (c *Controller) current() *State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Controller) notifyPhase(p Phase) {
	if c.listeners.OnPhase != nil {
		c.listeners.OnPhase(p)
	}
}
