package tts

import (
	"context"
	"time"
)

// Audio is one synthesized clip plus enough format metadata to pace
// playback server-side.
type Audio struct {
	Data          []byte
	MIME          string
	SampleRate    int
	BitsPerSample int
	Channels      int
	// WAVHeader is the number of leading container bytes to exclude from
	// the duration estimate (44 for the RIFF clips Azure returns, 0 for
	// raw PCM streams).
	WAVHeader int
}

// Duration estimates the clip's playback time from the PCM payload size.
func (a Audio) Duration() time.Duration {
	sr, bps, ch := a.SampleRate, a.BitsPerSample, a.Channels
	if sr <= 0 || bps <= 0 || ch <= 0 {
		return 0
	}
	payload := len(a.Data) - a.WAVHeader
	if payload <= 0 {
		return 0
	}
	bytesPerSecond := sr * (bps / 8) * ch
	return time.Duration(payload) * time.Second / time.Duration(bytesPerSecond)
}

// Synthesizer converts text to one audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}
