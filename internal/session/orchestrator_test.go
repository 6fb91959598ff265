package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeCapture struct {
	text  string
	err   error
	delay time.Duration
}

func (f *fakeCapture) Recognize(ctx context.Context, audio []byte) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

type fakeInference struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	calls int
	seen  []Utterance
}

func (f *fakeInference) Infer(ctx context.Context, transcript []Utterance, ic InterviewContext) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls++
	f.seen = transcript
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSpeech struct {
	mu       sync.Mutex
	synthErr error
	manual   bool
	events   chan PlaybackEvent
	started  chan struct{}
	halts    int
}

func newFakeSpeech() *fakeSpeech {
	return &fakeSpeech{started: make(chan struct{}, 8)}
}

func (f *fakeSpeech) SynthesizeAndPlay(ctx context.Context, text string) (<-chan PlaybackEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	if f.manual {
		f.events = make(chan PlaybackEvent, 8)
		f.events <- PlaybackEvent{Kind: PlaybackStarted}
		select {
		case f.started <- struct{}{}:
		default:
		}
		return f.events, nil
	}
	ch := make(chan PlaybackEvent, 2)
	ch <- PlaybackEvent{Kind: PlaybackStarted}
	ch <- PlaybackEvent{Kind: PlaybackEnded}
	close(ch)
	return ch, nil
}

func (f *fakeSpeech) Halt() {
	f.mu.Lock()
	f.halts++
	ev := f.events
	f.mu.Unlock()
	if ev != nil {
		select {
		case ev <- PlaybackEvent{Kind: PlaybackEnded}:
		default:
		}
	}
}

func (f *fakeSpeech) emit(k PlaybackEventKind, err error) {
	f.mu.Lock()
	ev := f.events
	f.mu.Unlock()
	ev <- PlaybackEvent{Kind: k, Err: err}
}

func (f *fakeSpeech) haltCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halts
}

func TestRunTurn_FullTurnAppendsUserThenAgent(t *testing.T) {
	capture := &fakeCapture{text: "I worked on a payments system"}
	infer := &fakeInference{reply: "Can you describe the scaling challenges?"}
	orch := NewOrchestrator(capture, infer, newFakeSpeech())
	s := NewState(InterviewContext{})

	if err := orch.RunTurn(context.Background(), s, []byte{1, 2, 3}); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	snap := s.Transcript().Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(snap))
	}
	if snap[0].Speaker != SpeakerUser || snap[0].Sequence != 0 {
		t.Fatalf("first entry must be user seq 0: %+v", snap[0])
	}
	if snap[1].Speaker != SpeakerAgent || snap[1].Sequence != 1 {
		t.Fatalf("second entry must be agent seq 1: %+v", snap[1])
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", s.Phase())
	}
	if s.Lock().Held() {
		t.Fatalf("lock must be released after the turn")
	}
}

func TestRunTurn_OpeningTurnAppendsOnlyAgent(t *testing.T) {
	infer := &fakeInference{reply: "Tell me about yourself."}
	orch := NewOrchestrator(&fakeCapture{}, infer, newFakeSpeech())
	s := NewState(InterviewContext{ResumeText: "5 years Go backend", JobDescription: "Senior Go Engineer"})

	if err := orch.RunTurn(context.Background(), s, nil); err != nil {
		t.Fatalf("opening turn: %v", err)
	}
	snap := s.Transcript().Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected exactly one utterance, got %d", len(snap))
	}
	if snap[0].Speaker != SpeakerAgent || snap[0].Sequence != 0 {
		t.Fatalf("expected agent utterance at sequence 0, got %+v", snap[0])
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", s.Phase())
	}
}

func TestRunTurn_SecondTurnIsRejectedNotQueued(t *testing.T) {
	speech := newFakeSpeech()
	speech.manual = true
	infer := &fakeInference{reply: "ok"}
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, infer, speech)
	s := NewState(InterviewContext{})

	done := make(chan error, 1)
	go func() { done <- orch.RunTurn(context.Background(), s, []byte{1}) }()

	select {
	case <-speech.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("turn never reached playback")
	}
	if err := orch.RunTurn(context.Background(), s, []byte{2}); !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("expected ErrTurnInProgress, got %v", err)
	}

	speech.emit(PlaybackEnded, nil)
	if err := <-done; err != nil {
		t.Fatalf("first turn should complete: %v", err)
	}
	// only the first turn made it into the transcript
	if got := s.Transcript().Len(); got != 2 {
		t.Fatalf("expected 2 utterances, got %d", got)
	}
	if infer.calls != 1 {
		t.Fatalf("rejected turn must not reach inference: %d calls", infer.calls)
	}
}

func TestRunTurn_CaptureFailureAbortsWithoutAppending(t *testing.T) {
	cases := []struct {
		name    string
		capture *fakeCapture
	}{
		{"adapter_error", &fakeCapture{err: errors.New("mic broke")}},
		{"no_speech", &fakeCapture{text: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orch := NewOrchestrator(tc.capture, &fakeInference{reply: "ok"}, newFakeSpeech())
			s := NewState(InterviewContext{})
			err := orch.RunTurn(context.Background(), s, []byte{1})
			if !errors.Is(err, ErrCapture) {
				t.Fatalf("expected ErrCapture, got %v", err)
			}
			if s.Transcript().Len() != 0 {
				t.Fatalf("failed capture must not append")
			}
			if s.Phase() != PhaseIdle || s.Lock().Held() {
				t.Fatalf("expected idle and unlocked, got %s held=%v", s.Phase(), s.Lock().Held())
			}
		})
	}
}

func TestRunTurn_InferenceTimeoutLeavesUnansweredUserLine(t *testing.T) {
	infer := &fakeInference{reply: "too late", delay: 300 * time.Millisecond}
	orch := NewOrchestrator(&fakeCapture{text: "hello"}, infer, newFakeSpeech(),
		WithTurnTimeout(40*time.Millisecond))
	s := NewState(InterviewContext{})

	err := orch.RunTurn(context.Background(), s, []byte{1})
	if !errors.Is(err, ErrTurnTimeout) {
		t.Fatalf("expected ErrTurnTimeout, got %v", err)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle after watchdog, got %s", s.Phase())
	}
	if s.Lock().Held() {
		t.Fatalf("watchdog must force-release the lock")
	}
	snap := s.Transcript().Snapshot()
	if len(snap) != 1 || snap[0].Speaker != SpeakerUser {
		t.Fatalf("expected only the user utterance, got %+v", snap)
	}

	// the late inference result must be discarded, not appended
	time.Sleep(400 * time.Millisecond)
	if got := s.Transcript().Len(); got != 1 {
		t.Fatalf("late result mutated the transcript: %d entries", got)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("late result moved the phase to %s", s.Phase())
	}
}

func TestRunTurn_SynthesisFailureKeepsAgentUtterance(t *testing.T) {
	speech := newFakeSpeech()
	speech.synthErr = errors.New("voice service down")
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, &fakeInference{reply: "hello there"}, speech)
	s := NewState(InterviewContext{})

	err := orch.RunTurn(context.Background(), s, []byte{1})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	// the agent text stands even though it was never heard
	snap := s.Transcript().Snapshot()
	if len(snap) != 2 || snap[1].Speaker != SpeakerAgent {
		t.Fatalf("agent utterance must be preserved, got %+v", snap)
	}
	if s.Phase() != PhaseIdle || s.Lock().Held() {
		t.Fatalf("expected idle and unlocked")
	}
}

func TestRunTurn_PlaybackErrorEvent(t *testing.T) {
	speech := newFakeSpeech()
	speech.manual = true
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, &fakeInference{reply: "hello"}, speech)
	s := NewState(InterviewContext{})

	done := make(chan error, 1)
	go func() { done <- orch.RunTurn(context.Background(), s, []byte{1}) }()
	<-speech.started
	speech.emit(PlaybackError, errors.New("device gone"))
	if err := <-done; !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if s.Transcript().Len() != 2 {
		t.Fatalf("transcript integrity lost on playback error")
	}
}

func TestRunTurn_StalePlaybackEventAfterTimeout(t *testing.T) {
	speech := newFakeSpeech()
	speech.manual = true
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, &fakeInference{reply: "hello"}, speech,
		WithTurnTimeout(50*time.Millisecond))
	s := NewState(InterviewContext{})

	done := make(chan error, 1)
	go func() { done <- orch.RunTurn(context.Background(), s, []byte{1}) }()
	<-speech.started
	// let the watchdog fire while playback never completes
	if err := <-done; !errors.Is(err, ErrTurnTimeout) {
		t.Fatalf("expected ErrTurnTimeout, got %v", err)
	}
	if s.Phase() != PhaseIdle || s.Lock().Held() {
		t.Fatalf("expected idle and unlocked after watchdog")
	}

	// a late completion event must not resurrect the turn
	speech.emit(PlaybackEnded, nil)
	time.Sleep(50 * time.Millisecond)
	if s.Phase() != PhaseIdle {
		t.Fatalf("stale playback event moved phase to %s", s.Phase())
	}
	if got := s.Transcript().Len(); got != 2 {
		t.Fatalf("stale playback event touched the transcript: %d entries", got)
	}
}

func TestRunTurn_PhaseProgression(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, &fakeInference{reply: "hello"}, newFakeSpeech(),
		WithListeners(Listeners{OnPhase: func(p Phase) {
			mu.Lock()
			phases = append(phases, p)
			mu.Unlock()
		}}))
	s := NewState(InterviewContext{})
	if err := orch.RunTurn(context.Background(), s, []byte{1}); err != nil {
		t.Fatalf("run turn: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []Phase{PhaseCapturing, PhaseInferring, PhaseSynthesizing, PhaseSpeaking, PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("phase sequence mismatch: got %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d: got %s want %s", i, phases[i], want[i])
		}
	}
}

func TestRunTurn_EndedSessionRejectsTurns(t *testing.T) {
	orch := NewOrchestrator(&fakeCapture{text: "hi"}, &fakeInference{reply: "hello"}, newFakeSpeech())
	s := NewState(InterviewContext{})
	s.end()
	if err := orch.RunTurn(context.Background(), s, []byte{1}); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}
