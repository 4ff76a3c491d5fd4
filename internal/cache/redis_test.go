// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisCache(client, zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupMiniRedis(t)

	cache.Set(ctx, "resolve:a1", []byte(`{"id":"a1"}`), 5*time.Minute)

	val, found := cache.Get(ctx, "resolve:a1")
	require.True(t, found)
	assert.JSONEq(t, `{"id":"a1"}`, string(val))
	assert.True(t, mr.Exists(KeyPrefix+"resolve:a1"), "keys are namespaced")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, cache := setupMiniRedis(t)

	val, found := cache.Get(context.Background(), "nonexistent")
	assert.False(t, found)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), cache.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupMiniRedis(t)

	cache.Set(ctx, "ttl", []byte("v"), 10*time.Second)
	_, found := cache.Get(ctx, "ttl")
	require.True(t, found)

	mr.FastForward(11 * time.Second)
	_, found = cache.Get(ctx, "ttl")
	assert.False(t, found, "expected value to be expired")
}

func TestRedisCache_Delete(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)

	cache.Set(ctx, "del", []byte("v"), time.Minute)
	cache.Delete(ctx, "del")
	_, found := cache.Get(ctx, "del")
	assert.False(t, found)
}

func TestRedisCache_HealthCheck(t *testing.T) {
	mr, cache := setupMiniRedis(t)

	require.NoError(t, cache.HealthCheck(context.Background()))
	mr.Close()
	assert.Error(t, cache.HealthCheck(context.Background()))
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	mr.Close()

	cache.Set(context.Background(), "k", []byte("v"), time.Minute)
	_, found := cache.Get(context.Background(), "k")
	assert.False(t, found)
}

func TestNewRedisCache_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRedisCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	_, cache := setupMiniRedis(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			cache.Set(ctx, key, []byte(key), time.Minute)
			_, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), cache.Stats().Sets)
}
