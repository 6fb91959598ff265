package session

import "errors"

var (
	// ErrTurnInProgress is returned when a turn is requested while another
	// is active. It is a rejected no-op, never a queued retry.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrSessionEnded is returned for turn requests after teardown.
	ErrSessionEnded = errors.New("session has ended")

	// ErrNoSession is returned when no session has been started yet.
	ErrNoSession = errors.New("no active session")

	// ErrNoSpeech is returned when capture completes without recognizing
	// any speech. The user re-initiates; nothing is retried automatically.
	ErrNoSpeech = errors.New("no speech recognized")

	// ErrTurnTimeout is returned when the watchdog fires before the turn
	// completes. The lock is force-released; in-flight adapter results are
	// discarded by the stale-result guard.
	ErrTurnTimeout = errors.New("turn deadline exceeded")

	// ErrTurnAbandoned is returned when an adapter result arrives after the
	// turn lost lock ownership (expiry or session teardown).
	ErrTurnAbandoned = errors.New("turn abandoned")

	// Per-stage failure sentinels. Wrapped around the adapter error so
	// callers can classify with errors.Is.
	ErrCapture   = errors.New("capture failed")
	ErrInference = errors.New("inference failed")
	ErrSynthesis = errors.New("synthesis failed")
	ErrScoring   = errors.New("scoring failed")
)
