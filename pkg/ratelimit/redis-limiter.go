package ratelimit

import (
	"context"
	"hurlfix/pkg/models"
	"hurlfix/pkg/utils/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a hit and returns {count, pttl}. The window
// starts with the first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisRateLimiter shares fixed-window counters across instances.
type RedisRateLimiter struct {
	client    *redis.Client
	namespace string
	failOpen  bool
	timeout   time.Duration
	logger    *logger.Logger
}

func NewRedisRateLimiter(config *models.RedisConfig, log *logger.Logger) *RedisRateLimiter {
	if log == nil {
		log = logger.Nop()
	}
	db := 0
	if config.DB != nil {
		db = *config.DB
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       db,
	})

	namespace := config.KeyNamespace
	if namespace == "" {
		namespace = "hurlfix:ratelimit:"
	} else if namespace[len(namespace)-1] != ':' {
		namespace += ":"
	}

	failOpen := true
	if config.FailOpen != nil {
		failOpen = *config.FailOpen
	}

	return &RedisRateLimiter{
		client:    client,
		namespace: namespace,
		failOpen:  failOpen,
		timeout:   2 * time.Second,
		logger:    log.WithComponent("ratelimit.redis"),
	}
}

func (r *RedisRateLimiter) AllowWithLimit(key string, limit int64, window time.Duration) (bool, int64, time.Time) {
	now := time.Now()
	if limit <= 0 || window <= 0 {
		return false, 0, now.Add(window)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	values, err := fixedWindowScript.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil || len(values) < 2 {
		r.logger.Error().Err(err).Str("key", key).Bool("failOpen", r.failOpen).Msg("redis rate limit check failed")
		if r.failOpen {
			return true, limit, now.Add(window)
		}
		return false, 0, now.Add(window)
	}

	count, ttl := values[0], values[1]

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := now.Add(window)
	if ttl >= 0 {
		resetTime = now.Add(time.Duration(ttl) * time.Millisecond)
	}

	return count <= limit, remaining, resetTime
}

func (r *RedisRateLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to reset rate limit")
	}
}

func (r *RedisRateLimiter) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisRateLimiter) key(k string) string {
	return r.namespace + k
}

func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}
