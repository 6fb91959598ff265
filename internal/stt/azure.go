package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AzureClient performs one-shot speech recognition against the Azure Speech
// REST endpoint. The whole clip is sent in a single request; there are no
// partial results.
type AzureClient struct {
	HTTPClient  *http.Client
	APIKey      string
	Region      string
	Language    string
	ContentType string
}

type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

// NewAzureClient constructs a recognizer for en-US WAV clips.
func NewAzureClient(apiKey, region string) *AzureClient {
	return &AzureClient{
		HTTPClient:  &http.Client{Timeout: 20 * time.Second},
		APIKey:      apiKey,
		Region:      region,
		Language:    "en-US",
		ContentType: "audio/wav",
	}
}

// Recognize converts one recorded clip to text. An empty string with nil
// error means the service heard no speech; the caller decides how to
// surface that.
func (c *AzureClient) Recognize(ctx context.Context, audio []byte) (string, error) {
	if c.APIKey == "" || c.Region == "" {
		return "", fmt.Errorf("azure speech key or region missing")
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("azure stt: empty audio clip")
	}
	endpoint := fmt.Sprintf(
		"https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1?language=%s",
		c.Region, c.Language,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)
	req.Header.Set("Content-Type", c.ContentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure stt error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var rr recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", err
	}
	switch rr.RecognitionStatus {
	case "Success":
		return rr.DisplayText, nil
	case "NoMatch", "InitialSilenceTimeout":
		return "", nil
	default:
		return "", fmt.Errorf("azure stt: recognition status %q", rr.RecognitionStatus)
	}
}
