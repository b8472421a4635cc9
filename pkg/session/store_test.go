package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "user1", "alice@example.com", time.Minute))
	value, err := s.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", value)

	require.NoError(t, s.Delete(ctx, "user1"))
	_, err = s.Get(ctx, "user1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "user1", "alice@example.com", time.Minute))

	now = now.Add(30 * time.Second)
	_, err := s.Get(ctx, "user1")
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, err = s.Get(ctx, "user1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	srv := miniredis.RunT(t)
	s, err := NewRedisStore(config.SessionSettings{RedisURL: "redis://" + srv.Addr()})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "user1", "alice@example.com", time.Minute))
	value, err := s.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", value)

	srv.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "user1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "user2", "bob@example.com", time.Minute))
	require.NoError(t, s.Delete(ctx, "user2"))
	_, err = s.Get(ctx, "user2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStore_BackendSelection(t *testing.T) {
	s, err := NewStore(config.SessionSettings{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(config.SessionSettings{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(config.SessionSettings{Backend: "memcached"})
	assert.Error(t, err)
}
