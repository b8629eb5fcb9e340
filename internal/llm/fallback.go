package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"nutribot/internal/credential"
)

// Pool is the subset of the credential pool the fallback client needs.
type Pool interface {
	Current() (credential.Credential, bool)
	RecordError(index int)
	RecordSuccess(index int)
	Len() int
}

// FallbackClient presents a single Client while rotating keys behind it. The underlying
// client is rebuilt whenever the pool's current key changes. A call that fails with a
// rate limit or auth error is retried against whatever key the pool selects next, and the
// number of attempts is bounded by the number of keys in the pool.
type FallbackClient struct {
	mu       sync.Mutex
	pool     Pool
	factory  Factory
	clients  map[string]Client
	boundKey string
	logger   *slog.Logger
}

// NewFallbackClient wraps factory-built clients around the pool.
func NewFallbackClient(pool Pool, factory Factory, logger *slog.Logger) *FallbackClient {
	return &FallbackClient{
		pool:    pool,
		factory: factory,
		clients: make(map[string]Client),
		logger:  logger.With("component", "llm_fallback"),
	}
}

// Generate runs the request against the current key, rotating keys on credential errors.
// Other errors are returned immediately. When every attempt fails the last error is returned.
func (f *FallbackClient) Generate(ctx context.Context, req Request) (string, error) {
	maxAttempts := f.pool.Len()
	if maxAttempts == 0 {
		return "", ErrNoCredentials
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		cred, ok := f.pool.Current()
		if !ok {
			return "", ErrNoCredentials
		}
		client, err := f.bind(cred)
		if err != nil {
			return "", fmt.Errorf("failed to create llm client for key %s: %w", cred.Label, err)
		}

		text, err := client.Generate(ctx, req)
		if err == nil {
			f.pool.RecordSuccess(cred.Index)
			return text, nil
		}
		if !IsCredentialError(err) {
			return "", err
		}

		f.logger.Warn("API key error, trying next key", "key", cred.Label, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		f.pool.RecordError(cred.Index)
		lastErr = err
	}

	f.logger.Error("All API key attempts failed", "attempts", maxAttempts, "error", lastErr)
	return "", fmt.Errorf("all %d API key attempts failed: %w", maxAttempts, lastErr)
}

// bind returns the client for cred, building it on first use.
func (f *FallbackClient) bind(cred credential.Credential) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cred.Key != f.boundKey && f.boundKey != "" {
		f.logger.Info("Switching LLM client to new API key", "key", cred.Label)
	}
	f.boundKey = cred.Key

	if client, ok := f.clients[cred.Key]; ok {
		return client, nil
	}
	client, err := f.factory(cred.Key)
	if err != nil {
		return nil, err
	}
	f.clients[cred.Key] = client
	return client, nil
}

// Close releases any underlying clients that hold resources.
func (f *FallbackClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for key, client := range f.clients {
		if closer, ok := client.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(f.clients, key)
	}
	f.boundKey = ""
	return firstErr
}
