package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.5")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Close())
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-valid-url", 100, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisRateLimiter("redis://"+addr+"/0", 100, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr()+"/0", 1, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	allowed, err := limiter.Allow(context.Background(), "controller")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_EnforcesLimit(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisRateLimiterWithClient(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.5")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request should be limited")

	allowed, err = limiter.Allow(ctx, "10.0.0.6")
	require.NoError(t, err)
	assert.True(t, allowed, "other clients have their own window")
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisRateLimiterWithClient(client, 2, time.Minute).(*redisRateLimiter)

	current := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "kiosk")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "kiosk")
	require.NoError(t, err)
	assert.False(t, allowed)

	current = current.Add(61 * time.Second)
	allowed, err = limiter.Allow(ctx, "kiosk")
	require.NoError(t, err)
	assert.True(t, allowed, "old entries fall out of the window")
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRedisRateLimiterWithClient(client, 5, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "kiosk")
	assert.Error(t, err)
}
