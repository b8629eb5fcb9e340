package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "recipe", []byte("dal"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("rice"), 0))

	got, err := s.Get(ctx, "recipe")
	require.NoError(t, err)
	assert.Equal(t, "dal", string(got))

	got[0] = 'X'
	again, _ := s.Get(ctx, "recipe")
	assert.Equal(t, "dal", string(again), "callers must not be able to mutate stored values")

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "recipe")
	assert.ErrorIs(t, err, ErrMiss)

	got, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "rice", string(got))

	require.NoError(t, s.Delete(ctx, "forever"))
	_, err = s.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	s.Set(ctx, "a", []byte("1"), time.Second)
	s.Set(ctx, "b", []byte("2"), time.Hour)
	s.Set(ctx, "c", []byte("3"), 0)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 2, s.Len())
}

func TestRedisStore_BuildKey(t *testing.T) {
	assert.Equal(t, "nutribot:recipe:abc", NewRedisStore(nil, " nutribot ").buildKey("recipe:abc"))
	assert.Equal(t, "recipe:abc", NewRedisStore(nil, "").buildKey("recipe:abc"))
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	s := NewRedisStore(client, "test")

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
