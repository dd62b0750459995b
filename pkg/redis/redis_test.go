package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hawkeye/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false, Prefix: "test"})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.Equal(t, "test", client.Prefix())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), QuoteRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed, "requests must be allowed when redis is disabled")
	assert.Equal(t, QuoteRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), EastmoneyRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", 1.5, TTLOfficial))

	var result float64
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found, "expected cache miss when redis disabled")
}

func TestOfficialReturnKey(t *testing.T) {
	assert.Equal(t, "official:009968", OfficialReturnKey("009968"))
}
