package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTurnTimeout bounds how long a turn may hold the lock. It must
// exceed expected inference+synthesis latency with margin.
const DefaultTurnTimeout = 12 * time.Second

// Orchestrator drives one full conversational turn (capture -> infer ->
// synthesize -> play) while holding the session's TurnLock. At most one
// turn is ever in flight; a second RunTurn while one is active is a
// rejected no-op.
//
// The external adapters cannot be canceled once dispatched. Expiry is
// handled by a stale-result guard instead: every dispatched call belongs to
// the turnID that was lock owner at dispatch time, and any result arriving
// after that turnID lost ownership is discarded without touching the
// transcript or the phase.
type Orchestrator struct {
	capture   SpeechCapture
	infer     Inference
	speech    SpeechOutput
	turnTTL   time.Duration
	log       *slog.Logger
	listeners Listeners
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTurnTimeout overrides the watchdog deadline.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnTTL = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithListeners sets the event callbacks for UI streaming.
func WithListeners(ls Listeners) Option {
	return func(o *Orchestrator) { o.listeners = ls }
}

// NewOrchestrator constructs an Orchestrator over the three adapters.
func NewOrchestrator(capture SpeechCapture, infer Inference, speech SpeechOutput, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capture: capture,
		infer:   infer,
		speech:  speech,
		turnTTL: DefaultTurnTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TurnTimeout returns the configured watchdog deadline.
func (o *Orchestrator) TurnTimeout() time.Duration { return o.turnTTL }

// RunTurn executes one turn against the session. audio is the recorded user
// clip; an empty clip marks the opening turn, which skips capture and
// appends only the agent's opening question.
//
// Per-turn failures are absorbed here: the transcript is never rolled back
// (it is an audit log, not a replayable command log), the lock is released,
// the phase returns to Idle, and the error is reported to the caller for
// status display only.
func (o *Orchestrator) RunTurn(ctx context.Context, s *State, audio []byte) error {
	if s.Phase() == PhaseEnded {
		return ErrSessionEnded
	}
	turnID := uuid.New()
	if !s.lock.TryAcquire(turnID, o.turnTTL) {
		return ErrTurnInProgress
	}
	s.setLastError("")
	log := o.log.With("session_id", s.ID, "turn_id", turnID)

	// Watchdog: if the turn is still lock owner when the deadline passes,
	// force-release and go Idle. In-flight adapter calls are abandoned, not
	// canceled; their eventual results fail the ownership check.
	expired := make(chan struct{})
	watchdog := time.AfterFunc(o.turnTTL, func() {
		if s.lock.OwnedBy(turnID) {
			s.lock.ForceRelease()
			if s.setPhase(PhaseIdle) {
				o.notifyPhase(PhaseIdle)
			}
			log.Warn("turn watchdog fired, lock force-released")
		}
		close(expired)
	})
	defer watchdog.Stop()

	if len(audio) > 0 {
		o.transition(s, turnID, PhaseCapturing)
		text, err := o.dispatch(s, turnID, expired, func() (string, error) {
			return o.capture.Recognize(ctx, audio)
		})
		if err != nil {
			return o.abort(log, s, turnID, ErrCapture, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return o.abort(log, s, turnID, ErrCapture, ErrNoSpeech)
		}
		u, ok := s.transcript.Append(SpeakerUser, text)
		if !ok {
			return o.abort(log, s, turnID, ErrCapture, ErrTurnAbandoned)
		}
		log.Info("user utterance recorded", "sequence", u.Sequence)
		o.notifyUtterance(u)
	}

	o.transition(s, turnID, PhaseInferring)
	reply, err := o.dispatch(s, turnID, expired, func() (string, error) {
		return o.infer.Infer(ctx, s.transcript.Snapshot(), s.ictx)
	})
	if err != nil {
		return o.abort(log, s, turnID, ErrInference, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return o.abort(log, s, turnID, ErrInference, errors.New("empty reply"))
	}
	u, ok := s.transcript.Append(SpeakerAgent, reply)
	if !ok {
		return o.abort(log, s, turnID, ErrInference, ErrTurnAbandoned)
	}
	log.Info("agent utterance recorded", "sequence", u.Sequence)
	o.notifyUtterance(u)

	o.transition(s, turnID, PhaseSynthesizing)
	events, err := o.speech.SynthesizeAndPlay(ctx, reply)
	if err != nil {
		// The agent utterance already appended stands even though it was
		// never heard.
		return o.abort(log, s, turnID, ErrSynthesis, err)
	}
	for {
		select {
		case ev, open := <-events:
			if !open {
				return o.complete(log, s, turnID)
			}
			switch ev.Kind {
			case PlaybackStarted:
				o.transition(s, turnID, PhaseSpeaking)
			case PlaybackEnded:
				return o.complete(log, s, turnID)
			case PlaybackError:
				return o.abort(log, s, turnID, ErrSynthesis, ev.Err)
			}
		case <-expired:
			return o.abort(log, s, turnID, ErrSynthesis, ErrTurnTimeout)
		}
	}
}

// dispatch runs one external call and applies the stale-result guard: the
// result is returned only if turnID still owns the lock when it arrives.
func (o *Orchestrator) dispatch(s *State, turnID uuid.UUID, expired <-chan struct{}, call func() (string, error)) (string, error) {
	type callResult struct {
		text string
		err  error
	}
	ch := make(chan callResult, 1)
	go func() {
		text, err := call()
		ch <- callResult{text: text, err: err}
	}()
	select {
	case r := <-ch:
		if !s.lock.OwnedBy(turnID) {
			return "", ErrTurnAbandoned
		}
		return r.text, r.err
	case <-expired:
		return "", ErrTurnTimeout
	}
}

func (o *Orchestrator) complete(log *slog.Logger, s *State, turnID uuid.UUID) error {
	watchFired := !s.lock.Release(turnID)
	if !watchFired {
		if s.setPhase(PhaseIdle) {
			o.notifyPhase(PhaseIdle)
		}
		log.Info("turn completed")
	}
	return nil
}

// abort ends a failed turn. Timeout and abandonment keep their own error
// identity; everything else is wrapped with the failing stage. The release
// is conditional: if the watchdog or teardown already took the lock, the
// phase is theirs to manage.
func (o *Orchestrator) abort(log *slog.Logger, s *State, turnID uuid.UUID, stage error, cause error) error {
	err := cause
	if !errors.Is(cause, ErrTurnTimeout) && !errors.Is(cause, ErrTurnAbandoned) {
		err = fmt.Errorf("%w: %v", stage, cause)
	}
	s.setLastError(err.Error())
	if s.lock.Release(turnID) {
		if s.setPhase(PhaseIdle) {
			o.notifyPhase(PhaseIdle)
		}
	}
	log.Error("turn aborted", "error", err)
	return err
}

func (o *Orchestrator) transition(s *State, turnID uuid.UUID, p Phase) {
	if s.setPhaseOwned(turnID, p) {
		o.notifyPhase(p)
	}
}

func (o *Orchestrator) notifyPhase(p Phase) {
	if o.listeners.OnPhase != nil {
		o.listeners.OnPhase(p)
	}
}

func (o *Orchestrator) notifyUtterance(u Utterance) {
	if o.listeners.OnUtterance != nil {
		o.listeners.OnUtterance(u)
	}
}
