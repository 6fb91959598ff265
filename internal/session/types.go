package session

import (
	"context"
)

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Utterance is one transcript entry. Immutable once appended; Sequence is
// assigned by the transcript and is strictly increasing within a session.
type Utterance struct {
	Speaker  Speaker `json:"speaker"`
	Text     string  `json:"text"`
	Sequence int     `json:"sequence"`
}

// Phase is the session's current state as seen by the UI.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCapturing    Phase = "capturing"
	PhaseInferring    Phase = "inferring"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseSpeaking     Phase = "speaking"
	PhaseEnded        Phase = "ended"
)

// InterviewContext is the static context sent with every inference call.
type InterviewContext struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// Report is the scored feedback produced once, at session end.
type Report struct {
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Improvements []string `json:"improvements"`
}

// SpeechCapture converts one recorded audio clip to text. One-shot, no
// partial results.
type SpeechCapture interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Inference returns the agent's next utterance given the full transcript
// plus the static interview context. Stateless from call to call.
type Inference interface {
	Infer(ctx context.Context, transcript []Utterance, ic InterviewContext) (string, error)
}

// PlaybackEventKind tags events emitted during synthesis and playback.
type PlaybackEventKind string

const (
	PlaybackStarted PlaybackEventKind = "started"
	PlaybackEnded   PlaybackEventKind = "ended"
	PlaybackError   PlaybackEventKind = "error"
)

// PlaybackEvent is one event in the finite, non-restartable stream produced
// per SynthesizeAndPlay invocation.
type PlaybackEvent struct {
	Kind PlaybackEventKind
	Err  error
}

// SpeechOutput synthesizes text to audio and plays it back, reporting
// progress on the returned channel. The channel is closed after the
// terminal Ended or Error event. Halt stops any in-flight playback
// immediately; it is the session-teardown escape hatch.
type SpeechOutput interface {
	SynthesizeAndPlay(ctx context.Context, text string) (<-chan PlaybackEvent, error)
	Halt()
}

// Scorer grades a finished interview from a transcript snapshot.
type Scorer interface {
	Score(ctx context.Context, transcript []Utterance, ic InterviewContext) (Report, error)
}

// Listeners receives session events for UI streaming. All callbacks are
// optional and must not block.
type Listeners struct {
	OnPhase     func(Phase)
	OnUtterance func(Utterance)
	OnReport    func(Report)
}
