package ratelimitmanager

import (
	"hurlfix/pkg/models"
	"hurlfix/pkg/ratelimit"
	"hurlfix/pkg/utils/logger"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// RateLimitManager applies a single limiter backend to incoming requests.
type RateLimitManager struct {
	limiter      ratelimit.IRateLimiter
	logger       *logger.Logger
	healthTicker *time.Ticker
	stopChan     chan struct{}
	closeOnce    sync.Once
}

// NewRateLimitManager starts periodic health checks of limiter.
func NewRateLimitManager(limiter ratelimit.IRateLimiter, log *logger.Logger) *RateLimitManager {
	if log == nil {
		log = logger.Nop()
	}
	manager := &RateLimitManager{
		limiter:  limiter,
		logger:   log.WithComponent("ratelimit"),
		stopChan: make(chan struct{}),
	}

	manager.startHealthMonitoring(30 * time.Second)

	return manager
}

func (rlm *RateLimitManager) Resolve(globalConfig *models.RateLimitConfig, routeConfig *models.RateLimitConfig) *models.RateLimitConfig {
	return ratelimit.Resolve(globalConfig, routeConfig)
}

func allowAll() *ratelimit.RateLimitResult {
	return &ratelimit.RateLimitResult{Allowed: true, Remaining: -1, Limit: -1}
}

// Check consumes one request from the bucket of scope and the request's key.
// scope keeps per-fixture limits apart from the global one.
func (rlm *RateLimitManager) Check(ctx *fasthttp.RequestCtx, config *models.RateLimitConfig, scope string) *ratelimit.RateLimitResult {
	if rlm == nil || rlm.limiter == nil || config == nil || !config.Enabled {
		return allowAll()
	}
	if config.Requests == nil || config.Window == nil {
		rlm.logger.Warn().Str("scope", scope).Msg("rate limit config incomplete, allowing request")
		return allowAll()
	}

	key := rlm.BuildKey(ctx, config)
	if key == "" {
		rlm.logger.Warn().Str("scope", scope).Msg("cannot derive rate limit key, allowing request")
		return allowAll()
	}
	if scope != "" {
		key = scope + ":" + key
	}

	allowed, remaining, resetTime := rlm.limiter.AllowWithLimit(key, *config.Requests, *config.Window)

	if allowed {
		rlm.logger.Debug().Str("key", key).Int64("remaining", remaining).Int64("limit", *config.Requests).Msg("rate limit check passed")
	} else {
		rlm.logger.Warn().Str("key", key).Int64("limit", *config.Requests).Time("reset", resetTime).Msg("rate limit exceeded")
	}

	return &ratelimit.RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetTime: resetTime,
		Limit:     *config.Requests,
		Key:       key,
	}
}

// BuildKey joins the configured key parts: "ip" or "header:<name>".
// A missing header falls back to the client IP.
func (rlm *RateLimitManager) BuildKey(ctx *fasthttp.RequestCtx, config *models.RateLimitConfig) string {
	if config == nil || len(config.KeyBy) == 0 {
		return GetClientIP(ctx)
	}

	parts := make([]string, 0, len(config.KeyBy))
	for _, keyType := range config.KeyBy {
		switch {
		case keyType == ratelimit.KEY_TYPE_IP:
			parts = append(parts, GetClientIP(ctx))
		case strings.HasPrefix(keyType, ratelimit.KEY_TYPE_HEADER+":"):
			headerName := strings.TrimPrefix(keyType, ratelimit.KEY_TYPE_HEADER+":")
			if value := string(ctx.Request.Header.Peek(headerName)); value != "" {
				parts = append(parts, value)
			} else {
				rlm.logger.Debug().Str("header", headerName).Msg("rate limit header missing, falling back to IP")
				parts = append(parts, GetClientIP(ctx))
			}
		default:
			rlm.logger.Warn().Str("keyType", keyType).Msg("unknown rate limit key type, using it verbatim")
			parts = append(parts, keyType)
		}
	}

	return strings.Join(parts, ":")
}

// GetClientIP prefers X-Forwarded-For, then X-Real-IP, then the peer address.
func GetClientIP(ctx *fasthttp.RequestCtx) string {
	if xff := string(ctx.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Real-IP"))); xri != "" {
		return xri
	}

	return ctx.RemoteIP().String()
}

func (rlm *RateLimitManager) Reset(key string) {
	if rlm == nil || rlm.limiter == nil {
		return
	}
	rlm.limiter.Reset(key)
}

func (rlm *RateLimitManager) SetHeaders(ctx *fasthttp.RequestCtx, result *ratelimit.RateLimitResult, config *models.RateLimitConfig) {
	if result == nil || result.Limit < 0 || config == nil || config.Headers == nil {
		return
	}

	if config.Headers.IncludeLimit {
		ctx.Response.Header.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	}
	if config.Headers.IncludeRemaining {
		ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	}
	if config.Headers.IncludeReset {
		ctx.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
	}
}

// Reject writes the rate limit response, including Retry-After.
func (rlm *RateLimitManager) Reject(ctx *fasthttp.RequestCtx, result *ratelimit.RateLimitResult, config *models.RateLimitConfig) {
	statusCode := fasthttp.StatusTooManyRequests
	message := "Rate limit exceeded. Please try again later."
	if config != nil {
		if config.StatusCode != nil {
			statusCode = *config.StatusCode
		}
		if config.Message != "" {
			message = config.Message
		}
	}

	rlm.SetHeaders(ctx, result, config)

	secs := max(int(math.Ceil(time.Until(result.ResetTime).Seconds())), 0)
	ctx.Response.Header.Set("Retry-After", strconv.Itoa(secs))

	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(message)
}

func (rlm *RateLimitManager) startHealthMonitoring(interval time.Duration) {
	if rlm.limiter == nil {
		return
	}

	rlm.healthTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-rlm.healthTicker.C:
				rlm.performHealthCheck()
			case <-rlm.stopChan:
				return
			}
		}
	}()
}

func (rlm *RateLimitManager) performHealthCheck() {
	if err := rlm.limiter.Health(); err != nil {
		rlm.logger.Error().Err(err).Msg("rate limiter health check failed")
	}
}

func (rlm *RateLimitManager) Close() error {
	var err error
	rlm.closeOnce.Do(func() {
		if rlm.healthTicker != nil {
			rlm.healthTicker.Stop()
		}
		close(rlm.stopChan)
		if rlm.limiter != nil {
			err = rlm.limiter.Close()
		}
	})
	return err
}
