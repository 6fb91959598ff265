package tts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

// AudioSink receives the synthesized clip for delivery to the listener
// (the websocket event hub in this service). Implementations must not
// block for the duration of playback.
type AudioSink interface {
	PlayAudio(mime string, data []byte)
	HaltPlayback()
}

type nopSink struct{}

func (nopSink) PlayAudio(string, []byte) {}
func (nopSink) HaltPlayback()            {}

// Player implements session.SpeechOutput over a Synthesizer and an
// AudioSink. Playback completion is paced server-side from the clip
// duration; Halt cuts the pacing short and tells the sink to stop.
type Player struct {
	synth Synthesizer
	sink  AudioSink
	log   *slog.Logger

	mu   sync.Mutex
	halt chan struct{}
}

// NewPlayer constructs a Player. A nil sink discards audio.
func NewPlayer(synth Synthesizer, sink AudioSink, log *slog.Logger) *Player {
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Player{synth: synth, sink: sink, log: log}
}

// SynthesizeAndPlay implements session.SpeechOutput. The returned channel
// carries Started, then Ended or Error, and is closed after the terminal
// event.
func (p *Player) SynthesizeAndPlay(ctx context.Context, text string) (<-chan session.PlaybackEvent, error) {
	events := make(chan session.PlaybackEvent, 4)
	halt := make(chan struct{})
	p.mu.Lock()
	if p.halt != nil {
		close(p.halt)
	}
	p.halt = halt
	p.mu.Unlock()

	go func() {
		defer close(events)
		defer p.clear(halt)

		audio, err := p.synth.Synthesize(ctx, text)
		if err != nil {
			events <- session.PlaybackEvent{Kind: session.PlaybackError, Err: err}
			return
		}
		select {
		case <-halt:
			events <- session.PlaybackEvent{Kind: session.PlaybackEnded}
			return
		default:
		}
		events <- session.PlaybackEvent{Kind: session.PlaybackStarted}
		p.sink.PlayAudio(audio.MIME, audio.Data)

		d := audio.Duration()
		p.log.Debug("playback started", "bytes", len(audio.Data), "duration", d)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-halt:
		case <-ctx.Done():
		}
		events <- session.PlaybackEvent{Kind: session.PlaybackEnded}
	}()
	return events, nil
}

// Halt implements session.SpeechOutput. Safe to call at any time, from any
// goroutine, including with no playback in flight.
func (p *Player) Halt() {
	p.mu.Lock()
	if p.halt != nil {
		close(p.halt)
		p.halt = nil
	}
	p.mu.Unlock()
	p.sink.HaltPlayback()
}

// clear forgets the halt channel once its playback finished, so a later
// Halt does not close it twice.
func (p *Player) clear(halt chan struct{}) {
	p.mu.Lock()
	if p.halt == halt {
		p.halt = nil
	}
	p.mu.Unlock()
}
