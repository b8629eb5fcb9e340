package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"nutribot/internal/config"
	"nutribot/internal/credential"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newPool(keys ...string) *credential.Pool {
	return newPoolWithThreshold(3, keys...)
}

func newPoolWithThreshold(maxErrors int, keys ...string) *credential.Pool {
	creds := make([]config.Credential, len(keys))
	for i, k := range keys {
		creds[i] = config.Credential{Key: k, Label: fmt.Sprintf("key_%d", i+1)}
	}
	return credential.NewPool(creds, maxErrors, testLogger())
}

// scriptedClient returns the error configured for its key, or a fixed text.
type scriptedClient struct {
	key    string
	errs   map[string]error
	calls  *[]string
	mu     *sync.Mutex
	closed bool
}

func (s *scriptedClient) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	*s.calls = append(*s.calls, s.key)
	s.mu.Unlock()
	if err, ok := s.errs[s.key]; ok {
		return "", err
	}
	return "ok from " + s.key, nil
}

func (s *scriptedClient) Close() error {
	s.closed = true
	return nil
}

func scriptedFactory(errs map[string]error, calls *[]string, built map[string]*scriptedClient) Factory {
	mu := &sync.Mutex{}
	return func(apiKey string) (Client, error) {
		c := &scriptedClient{key: apiKey, errs: errs, calls: calls, mu: mu}
		if built != nil {
			built[apiKey] = c
		}
		return c, nil
	}
}

func TestIsCredentialError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed 429", &APIError{StatusCode: 429, Message: "slow down"}, true},
		{"typed 401", &APIError{StatusCode: 401, Message: "nope"}, true},
		{"typed 403", &APIError{StatusCode: 403, Message: "forbidden"}, true},
		{"typed 500", &APIError{StatusCode: 500, Message: "boom"}, false},
		{"wrapped 429", fmt.Errorf("call: %w", &APIError{StatusCode: 429}), true},
		{"rate limit phrase", errors.New("Rate limit reached for model"), true},
		{"quota phrase", errors.New("Quota exceeded for today"), true},
		{"invalid key phrase", errors.New("Invalid API Key provided"), true},
		{"network error", errors.New("connection reset by peer"), false},
		{"parse error", errors.New("unexpected end of JSON input"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCredentialError(tc.err))
		})
	}
}

func TestFallbackClient_Generate(t *testing.T) {
	t.Run("rotates past a rate limited key", func(t *testing.T) {
		pool := newPoolWithThreshold(1, "k1", "k2")
		var calls []string
		errs := map[string]error{"k1": &APIError{StatusCode: 429, Code: "rate_limit_exceeded", Message: "limit"}}
		fc := NewFallbackClient(pool, scriptedFactory(errs, &calls, nil), testLogger())

		text, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "ok from k2", text)
		assert.Equal(t, []string{"k1", "k2"}, calls)

		st := pool.Status()
		assert.False(t, st.Keys[0].IsActive)
		assert.Equal(t, 1, st.Keys[1].UsageCount)
	})

	t.Run("retries the same key while it is under the threshold", func(t *testing.T) {
		pool := newPool("k1", "k2")
		var calls []string
		errs := map[string]error{"k1": errors.New("Error code: 429 - too many requests")}
		fc := NewFallbackClient(pool, scriptedFactory(errs, &calls, nil), testLogger())

		_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		require.Error(t, err)
		assert.Equal(t, []string{"k1", "k1"}, calls)
		assert.Equal(t, 2, pool.Status().Keys[0].ErrorCount)
	})

	t.Run("non credential errors are returned without rotation", func(t *testing.T) {
		pool := newPool("k1", "k2")
		var calls []string
		errs := map[string]error{"k1": errors.New("malformed response")}
		fc := NewFallbackClient(pool, scriptedFactory(errs, &calls, nil), testLogger())

		_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		require.Error(t, err)
		assert.Equal(t, "malformed response", err.Error())
		assert.Equal(t, []string{"k1"}, calls)
		assert.Equal(t, 0, pool.Status().Keys[0].ErrorCount)
	})

	t.Run("every key failing returns the last error after one attempt per key", func(t *testing.T) {
		pool := newPool("k1", "k2", "k3")
		var calls []string
		limit := &APIError{StatusCode: 429, Message: "limit"}
		errs := map[string]error{"k1": limit, "k2": limit, "k3": limit}
		fc := NewFallbackClient(pool, scriptedFactory(errs, &calls, nil), testLogger())

		_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		require.Error(t, err)
		assert.True(t, IsCredentialError(err))
		assert.Contains(t, err.Error(), "all 3 API key attempts failed")
		assert.Len(t, calls, 3)

		st := pool.Status()
		assert.False(t, st.Keys[0].IsActive)
		assert.Equal(t, 1, st.CurrentKeyIndex)
	})

	t.Run("empty pool", func(t *testing.T) {
		fc := NewFallbackClient(newPool(), scriptedFactory(nil, new([]string), nil), testLogger())
		_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("cancelled context stops before calling", func(t *testing.T) {
		var calls []string
		fc := NewFallbackClient(newPool("k1"), scriptedFactory(nil, &calls, nil), testLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fc.Generate(ctx, Request{Prompt: "hi"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, calls)
	})

	t.Run("factory errors are surfaced", func(t *testing.T) {
		factory := func(apiKey string) (Client, error) { return nil, errors.New("bad key format") }
		fc := NewFallbackClient(newPool("k1"), factory, testLogger())
		_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad key format")
	})
}

func TestFallbackClient_Close(t *testing.T) {
	built := map[string]*scriptedClient{}
	var calls []string
	fc := NewFallbackClient(newPool("k1"), scriptedFactory(nil, &calls, built), testLogger())

	_, err := fc.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	require.NoError(t, fc.Close())
	assert.True(t, built["k1"].closed)
}

func TestGroqClient_Generate(t *testing.T) {
	t.Run("sends the chat request and reads the first choice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			body, _ := io.ReadAll(r.Body)
			var req chatRequest
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "test-model", req.Model)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "be brief", req.Messages[0].Content)
			assert.Equal(t, "hello", req.Messages[1].Content)
			require.NotNil(t, req.ResponseFormat)
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
			require.NotNil(t, req.Temperature)
			assert.Equal(t, 0.3, *req.Temperature)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"{\"a\":1}"}}]}`))
		}))
		defer server.Close()

		c := NewGroqClient("test-key", WithBaseURL(server.URL), WithModel("test-model"))
		text, err := c.Generate(context.Background(), Request{System: "be brief", Prompt: "hello", JSON: true, Temperature: Temperature(0.3)})
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, text)
	})

	t.Run("sends a zero temperature and omits an unset one", func(t *testing.T) {
		var bodies []map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			bodies = append(bodies, body)
			w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
		}))
		defer server.Close()

		c := NewGroqClient("k", WithBaseURL(server.URL))
		_, err := c.Generate(context.Background(), Request{Prompt: "hello", Temperature: Temperature(0)})
		require.NoError(t, err)
		_, err = c.Generate(context.Background(), Request{Prompt: "hello"})
		require.NoError(t, err)

		require.Len(t, bodies, 2)
		temperature, ok := bodies[0]["temperature"]
		require.True(t, ok)
		assert.Equal(t, 0.0, temperature)
		assert.NotContains(t, bodies[1], "temperature")
	})

	t.Run("maps error responses to APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"tokens","code":"rate_limit_exceeded"}}`))
		}))
		defer server.Close()

		c := NewGroqClient("k", WithBaseURL(server.URL))
		_, err := c.Generate(context.Background(), Request{Prompt: "hello"})
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 429, apiErr.StatusCode)
		assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
		assert.True(t, IsCredentialError(err))
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"x","choices":[]}`))
		}))
		defer server.Close()

		c := NewGroqClient("k", WithBaseURL(server.URL))
		_, err := c.Generate(context.Background(), Request{Prompt: "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no response choices")
	})
}
