package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ElevenLabsClient synthesizes speech via the ElevenLabs HTTP streaming
// endpoint and collects the stream into one PCM 48kHz clip.
type ElevenLabsClient struct {
	HTTPClient *http.Client
	APIKey     string
	VoiceID    string
}

// NewElevenLabsClient constructs a synthesizer for the given voice.
func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		HTTPClient: &http.Client{Timeout: 0},
		APIKey:     apiKey,
		VoiceID:    voiceID,
	}
}

// Synthesize renders text to raw 48kHz 16-bit mono PCM.
func (e *ElevenLabsClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	if e.APIKey == "" || e.VoiceID == "" {
		return Audio{}, fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	u := url.URL{
		Scheme: "https",
		Host:   "api.elevenlabs.io",
		Path:   "/v1/text-to-speech/" + e.VoiceID + "/stream",
	}
	q := u.Query()
	q.Set("model_id", "eleven_flash_v2_5")
	q.Set("output_format", "pcm_48000")
	q.Set("optimize_streaming_latency", "2")
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": "eleven_flash_v2_5",
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
		// shorter chunks reduce tail cutoff; server still streams
		"generation_config": map[string]any{
			"chunk_length_schedule": []int{80, 120, 160, 200},
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs http stream error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Audio{}, fmt.Errorf("elevenlabs http status=%d body=%s", resp.StatusCode, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs http read error: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("elevenlabs: empty audio")
	}
	return Audio{
		Data:          data,
		MIME:          "audio/pcm;rate=48000",
		SampleRate:    48000,
		BitsPerSample: 16,
		Channels:      1,
	}, nil
}
