package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"nutribot/internal/cache"
	"nutribot/internal/chatbot"
	"nutribot/internal/config"
	"nutribot/internal/credential"
	"nutribot/internal/ratelimit"
)

type rejectAll struct{}

func (rejectAll) Probe(context.Context, string) error { return errors.New("invalid api key") }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testPool() *credential.Pool {
	return credential.NewPool([]config.Credential{{Key: "gsk_one", Label: "GROQ_API_KEY"}}, 3, testLogger())
}

func TestStartScheduler(t *testing.T) {
	s := NewScheduler(config.SchedulerConfig{
		KeyHealthCheck: "@every 30m",
		MemoryPrune:    "@hourly",
		PoolReset:      Disabled,
	}, Jobs{}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if got := len(s.c.Entries()); got != 2 {
		t.Errorf("Expected 2 scheduled jobs, got %d", got)
	}
	s.Stop()

	bad := NewScheduler(config.SchedulerConfig{MemoryPrune: "every so often"}, Jobs{}, testLogger())
	if err := bad.Start(); err == nil {
		t.Error("Expected an error for an invalid schedule")
	}
}

func TestCheckKeysAndReset(t *testing.T) {
	pool := testPool()
	s := NewScheduler(config.SchedulerConfig{}, Jobs{Pool: pool, Prober: rejectAll{}}, testLogger())

	// The job itself is run directly rather than waiting on cron.
	s.CheckKeys()
	if active := pool.Status().ActiveKeys; active != 0 {
		t.Fatalf("Expected the rejected key to be disabled, got %d active", active)
	}

	s.ResetPool()
	if active := pool.Status().ActiveKeys; active != 1 {
		t.Errorf("Expected the key to be active after reset, got %d active", active)
	}
}

func TestPrune(t *testing.T) {
	memory := chatbot.NewMemory(10)
	memory.Add(1, "hi", "hello", "chefgenius")

	store := cache.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, "gone", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "kept", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)

	s := NewScheduler(config.SchedulerConfig{MemoryIdleMinutes: 120}, Jobs{
		Memory:  memory,
		Cache:   store,
		Limiter: ratelimit.NewMemoryLimiter(time.Minute),
	}, testLogger())
	s.Prune()

	if memory.Len() != 1 {
		t.Errorf("Expected the recent conversation to be kept, got %d", memory.Len())
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 cache entry after sweep, got %d", store.Len())
	}

	// Jobs with nothing configured are no-ops.
	NewScheduler(config.SchedulerConfig{}, Jobs{}, testLogger()).Prune()
}
