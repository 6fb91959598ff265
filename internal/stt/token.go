package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenIssuer exchanges the subscription key for a short-lived Azure Speech
// authorization token so a browser can run the microphone SDK without ever
// seeing the key.
type TokenIssuer struct {
	HTTPClient *http.Client
	APIKey     string
	Region     string
}

// NewTokenIssuer constructs an issuer for the configured region.
func NewTokenIssuer(apiKey, region string) *TokenIssuer {
	return &TokenIssuer{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIKey:     apiKey,
		Region:     region,
	}
}

// Issue returns a fresh authorization token and the region it is valid for.
func (t *TokenIssuer) Issue(ctx context.Context) (token, region string, err error) {
	if t.APIKey == "" || t.Region == "" {
		return "", "", fmt.Errorf("azure speech key or region missing")
	}
	endpoint := fmt.Sprintf("https://%s.api.cognitive.microsoft.com/sts/v1.0/issueToken", t.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("azure token error: status=%d body=%s", resp.StatusCode, string(body))
	}
	return string(body), t.Region, nil
}
