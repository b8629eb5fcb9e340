// Package llm provides the language model clients used by the domain agents and a
// wrapper that rotates API keys from the credential pool when a provider rejects one.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultModel is the Groq model used when none is configured.
const DefaultModel = "llama-3.3-70b-versatile"

// Request is a single prompt sent to a model.
type Request struct {
	// System carries the agent's persona and instructions.
	System      string
	Prompt      string
	// Temperature is left to the provider default when nil.
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Temperature returns a sampling temperature for Request.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

// Client generates text for a prompt.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Factory builds a Client bound to one API key.
type Factory func(apiKey string) (Client, error)

// ErrNoCredentials is returned when the pool holds no API keys at all.
var ErrNoCredentials = errors.New("no LLM API keys configured")

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm api error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("llm api error (status %d): %s", e.StatusCode, e.Message)
}

// credentialErrorPhrases are matched against lower-cased error messages from providers
// that do not expose a status code.
var credentialErrorPhrases = []string{
	"rate_limit_exceeded",
	"rate limit",
	"quota exceeded",
	"too many requests",
	"high usage",
	"429",
	"unauthorized",
	"invalid api key",
	"api key",
}

// IsCredentialError reports whether err means the current key is rate limited or rejected,
// so another key should be tried.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403, 429:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range credentialErrorPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
