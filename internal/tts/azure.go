package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const azureOutputFormat = "riff-24khz-16bit-mono-pcm"

// AzureClient synthesizes speech via the Azure TTS REST endpoint, returning
// a complete WAV clip per request.
type AzureClient struct {
	HTTPClient *http.Client
	APIKey     string
	Region     string
	Voice      string
}

// NewAzureClient constructs a synthesizer with the multilingual Andrew
// voice unless overridden.
func NewAzureClient(apiKey, region, voice string) *AzureClient {
	if voice == "" {
		voice = "en-US-AndrewMultilingualNeural"
	}
	return &AzureClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		Region:     region,
		Voice:      voice,
	}
}

// Synthesize renders text to a 24kHz mono WAV clip.
func (c *AzureClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	if c.APIKey == "" || c.Region == "" {
		return Audio{}, fmt.Errorf("azure speech key or region missing")
	}
	endpoint := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", c.Region)
	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='en-US'><voice name='%s'>%s</voice></speak>`,
		c.Voice, escapeSSML(text),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(ssml))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Audio{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Audio{}, fmt.Errorf("azure tts error: status=%d body=%s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, err
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("azure tts: empty audio")
	}
	return Audio{
		Data:          data,
		MIME:          "audio/wav",
		SampleRate:    24000,
		BitsPerSample: 16,
		Channels:      1,
		WAVHeader:     44,
	}, nil
}

func escapeSSML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
