package ratelimit

import (
	"fmt"
	"hurlfix/pkg/models"
	"hurlfix/pkg/utils/logger"
	"strings"
	"time"
)

const (
	STORAGE_MEMORY = "memory"
	STORAGE_REDIS  = "redis"
)

const (
	KEY_TYPE_IP     = "ip"
	KEY_TYPE_HEADER = "header"
)

// IRateLimiter is implemented by the memory and redis backends.
type IRateLimiter interface {
	// AllowWithLimit consumes one request for key and reports whether it was
	// allowed and how many remain. The returned time is when the quota is
	// fully restored, or for a denied request, when the next one can pass.
	AllowWithLimit(key string, limit int64, window time.Duration) (bool, int64, time.Time)
	Reset(key string)
	Health() error
	Close() error
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	ResetTime time.Time
	Limit     int64
	Key       string
}

// SetDefaults fills every unset field of config.
func SetDefaults(config *models.RateLimitConfig) {
	if config == nil {
		return
	}

	if config.Requests == nil {
		requests := int64(100)
		config.Requests = &requests
	}
	if config.Window == nil {
		window := time.Minute
		config.Window = &window
	}
	if config.StatusCode == nil {
		statusCode := 429
		config.StatusCode = &statusCode
	}
	if config.Storage == "" {
		config.Storage = STORAGE_MEMORY
	}
	if len(config.KeyBy) == 0 {
		config.KeyBy = []string{KEY_TYPE_IP}
	}
	if config.Message == "" {
		config.Message = "Rate limit exceeded"
	}
}

// NewRateLimiter returns nil when rate limiting is disabled.
func NewRateLimiter(config *models.RateLimitConfig, log *logger.Logger) (IRateLimiter, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	SetDefaults(config)
	if *config.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", *config.Window)
	}

	switch strings.ToLower(config.Storage) {
	case STORAGE_MEMORY:
		return NewMemoryRateLimiter(*config.Window, log), nil
	case STORAGE_REDIS:
		if config.Redis == nil {
			return nil, fmt.Errorf("redis configuration required for redis rate limiter")
		}
		return NewRedisRateLimiter(config.Redis, log), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit storage type: %s", config.Storage)
	}
}

// Resolve merges a per-fixture config onto the global one. Storage and Redis
// are always taken from the global config.
func Resolve(globalConfig *models.RateLimitConfig, routeConfig *models.RateLimitConfig) *models.RateLimitConfig {
	if routeConfig == nil {
		return globalConfig
	}

	if !routeConfig.Enabled {
		return routeConfig
	}

	config := &models.RateLimitConfig{
		Enabled:    routeConfig.Enabled,
		Requests:   routeConfig.Requests,
		Window:     routeConfig.Window,
		KeyBy:      routeConfig.KeyBy,
		StatusCode: routeConfig.StatusCode,
		Message:    routeConfig.Message,
		Headers:    routeConfig.Headers,
	}

	if globalConfig == nil {
		return config
	}

	if config.Requests == nil {
		config.Requests = globalConfig.Requests
	}
	if config.Window == nil {
		config.Window = globalConfig.Window
	}
	if len(config.KeyBy) == 0 {
		config.KeyBy = globalConfig.KeyBy
	}
	if config.StatusCode == nil {
		config.StatusCode = globalConfig.StatusCode
	}
	if config.Message == "" {
		config.Message = globalConfig.Message
	}
	if config.Headers == nil {
		config.Headers = globalConfig.Headers
	}

	config.Storage = globalConfig.Storage
	config.Redis = globalConfig.Redis

	return config
}
