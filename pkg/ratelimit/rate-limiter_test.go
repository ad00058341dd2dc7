package ratelimit

import (
	"hurlfix/pkg/models"
	"hurlfix/pkg/utils/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func durationPtr(v time.Duration) *time.Duration {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func TestSetDefaults(t *testing.T) {
	config := &models.RateLimitConfig{Enabled: true}
	SetDefaults(config)

	assert.Equal(t, int64(100), *config.Requests)
	assert.Equal(t, time.Minute, *config.Window)
	assert.Equal(t, 429, *config.StatusCode)
	assert.Equal(t, STORAGE_MEMORY, config.Storage)
	assert.Equal(t, []string{KEY_TYPE_IP}, config.KeyBy)
	assert.Equal(t, "Rate limit exceeded", config.Message)

	SetDefaults(nil)
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	config := &models.RateLimitConfig{
		Requests:   int64Ptr(5),
		Window:     durationPtr(time.Second),
		StatusCode: intPtr(503),
		Message:    "slow down",
		KeyBy:      []string{"header:X-Suite"},
	}
	SetDefaults(config)

	assert.Equal(t, int64(5), *config.Requests)
	assert.Equal(t, time.Second, *config.Window)
	assert.Equal(t, 503, *config.StatusCode)
	assert.Equal(t, "slow down", config.Message)
	assert.Equal(t, []string{"header:X-Suite"}, config.KeyBy)
}

func TestNewRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(nil, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, limiter)

	limiter, err = NewRateLimiter(&models.RateLimitConfig{Enabled: false}, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, limiter)

	limiter, err = NewRateLimiter(&models.RateLimitConfig{Enabled: true}, logger.Nop())
	require.NoError(t, err)
	require.IsType(t, &MemoryRateLimiter{}, limiter)
	assert.NoError(t, limiter.Close())
}

func TestNewRateLimiter_Errors(t *testing.T) {
	_, err := NewRateLimiter(&models.RateLimitConfig{Enabled: true, Storage: "redis"}, logger.Nop())
	assert.Error(t, err)

	_, err = NewRateLimiter(&models.RateLimitConfig{Enabled: true, Storage: "etcd"}, logger.Nop())
	assert.Error(t, err)

	_, err = NewRateLimiter(&models.RateLimitConfig{Enabled: true, Window: durationPtr(0)}, logger.Nop())
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	global := &models.RateLimitConfig{
		Enabled:    true,
		Requests:   int64Ptr(100),
		Window:     durationPtr(time.Minute),
		StatusCode: intPtr(429),
		Message:    "global",
		Storage:    STORAGE_REDIS,
		KeyBy:      []string{KEY_TYPE_IP},
		Redis:      &models.RedisConfig{Address: "redis:6379"},
	}

	assert.Same(t, global, Resolve(global, nil))

	disabled := &models.RateLimitConfig{Enabled: false}
	assert.Same(t, disabled, Resolve(global, disabled))

	route := &models.RateLimitConfig{
		Enabled:  true,
		Requests: int64Ptr(1),
		Storage:  STORAGE_MEMORY,
	}
	resolved := Resolve(global, route)

	assert.Equal(t, int64(1), *resolved.Requests)
	assert.Equal(t, time.Minute, *resolved.Window)
	assert.Equal(t, "global", resolved.Message)
	assert.Equal(t, []string{KEY_TYPE_IP}, resolved.KeyBy)
	assert.Equal(t, STORAGE_REDIS, resolved.Storage)
	assert.Same(t, global.Redis, resolved.Redis)
}
