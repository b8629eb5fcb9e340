package credential

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober validates a single API key against the provider.
type Prober interface {
	Probe(ctx context.Context, key string) error
}

// HTTPProber checks a key with a low-cost request to the OpenAI-compatible model listing endpoint.
type HTTPProber struct {
	BaseURL string
	Client  HTTPClient
}

// NewHTTPProber creates a prober for the given API base URL, e.g. https://api.groq.com/openai/v1.
func NewHTTPProber(baseURL string) *HTTPProber {
	return &HTTPProber{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Probe returns nil when the provider accepts the key.
func (p *HTTPProber) Probe(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create test request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("test request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("test request returned non-200 status: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
