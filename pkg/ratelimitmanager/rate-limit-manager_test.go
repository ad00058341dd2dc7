package ratelimitmanager

import (
	"hurlfix/pkg/models"
	"hurlfix/pkg/ratelimit"
	"hurlfix/pkg/utils/logger"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func durationPtr(v time.Duration) *time.Duration {
	return &v
}

func newRequestCtx(headers map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&fasthttp.Request{}, &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 40000}, nil)
	ctx.Request.SetRequestURI("/error-assert-bytearray")
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	return ctx
}

func newManager(t *testing.T) *RateLimitManager {
	t.Helper()
	manager := NewRateLimitManager(ratelimit.NewMemoryRateLimiter(time.Minute, logger.Nop()), logger.Nop())
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "remote address", want: "10.0.0.7"},
		{name: "x-forwarded-for first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, want: "203.0.113.9"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetClientIP(newRequestCtx(tt.headers)))
		})
	}
}

func TestBuildKey(t *testing.T) {
	manager := newManager(t)

	ctx := newRequestCtx(map[string]string{"X-Suite": "bytearray"})
	assert.Equal(t, "10.0.0.7", manager.BuildKey(ctx, nil))
	assert.Equal(t, "10.0.0.7:bytearray", manager.BuildKey(ctx, &models.RateLimitConfig{KeyBy: []string{"ip", "header:X-Suite"}}))
	assert.Equal(t, "10.0.0.7", manager.BuildKey(newRequestCtx(nil), &models.RateLimitConfig{KeyBy: []string{"header:X-Suite"}}))
	assert.Equal(t, "static", manager.BuildKey(ctx, &models.RateLimitConfig{KeyBy: []string{"static"}}))
}

func TestCheck_DisabledOrNil(t *testing.T) {
	var nilManager *RateLimitManager
	result := nilManager.Check(newRequestCtx(nil), &models.RateLimitConfig{Enabled: true}, "")
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(-1), result.Limit)

	manager := newManager(t)
	result = manager.Check(newRequestCtx(nil), &models.RateLimitConfig{Enabled: false}, "")
	assert.True(t, result.Allowed)

	result = manager.Check(newRequestCtx(nil), nil, "")
	assert.True(t, result.Allowed)
}

func TestCheck_LimitsPerScope(t *testing.T) {
	manager := newManager(t)
	config := &models.RateLimitConfig{
		Enabled:  true,
		Requests: int64Ptr(1),
		Window:   durationPtr(time.Minute),
		KeyBy:    []string{"ip"},
	}

	first := manager.Check(newRequestCtx(nil), config, "error-assert-bytearray")
	require.True(t, first.Allowed)
	assert.Equal(t, "error-assert-bytearray:10.0.0.7", first.Key)

	second := manager.Check(newRequestCtx(nil), config, "error-assert-bytearray")
	assert.False(t, second.Allowed)

	other := manager.Check(newRequestCtx(nil), config, "other-fixture")
	assert.True(t, other.Allowed)

	manager.Reset(first.Key)
	assert.True(t, manager.Check(newRequestCtx(nil), config, "error-assert-bytearray").Allowed)
}

func TestSetHeaders(t *testing.T) {
	manager := newManager(t)
	ctx := newRequestCtx(nil)
	reset := time.Now().Add(time.Minute)
	result := &ratelimit.RateLimitResult{Allowed: true, Remaining: 4, Limit: 5, ResetTime: reset}

	manager.SetHeaders(ctx, result, &models.RateLimitConfig{Headers: &models.RateLimitHeadersConfig{
		IncludeLimit:     true,
		IncludeRemaining: true,
		IncludeReset:     true,
	}})

	assert.Equal(t, "5", string(ctx.Response.Header.Peek("X-RateLimit-Limit")))
	assert.Equal(t, "4", string(ctx.Response.Header.Peek("X-RateLimit-Remaining")))
	assert.Equal(t, strconv.FormatInt(reset.Unix(), 10), string(ctx.Response.Header.Peek("X-RateLimit-Reset")))
}

func TestSetHeaders_SkipsUnlimited(t *testing.T) {
	manager := newManager(t)
	ctx := newRequestCtx(nil)

	manager.SetHeaders(ctx, allowAll(), &models.RateLimitConfig{Headers: &models.RateLimitHeadersConfig{IncludeLimit: true}})
	assert.Empty(t, ctx.Response.Header.Peek("X-RateLimit-Limit"))
}

func TestReject(t *testing.T) {
	manager := newManager(t)
	ctx := newRequestCtx(nil)
	status := 503
	result := &ratelimit.RateLimitResult{Allowed: false, Limit: 1, ResetTime: time.Now().Add(1500 * time.Millisecond)}

	manager.Reject(ctx, result, &models.RateLimitConfig{StatusCode: &status, Message: "slow down"})

	assert.Equal(t, 503, ctx.Response.StatusCode())
	assert.Equal(t, "slow down", string(ctx.Response.Body()))
	assert.Equal(t, "2", string(ctx.Response.Header.Peek("Retry-After")))
}

func TestReject_Defaults(t *testing.T) {
	manager := newManager(t)
	ctx := newRequestCtx(nil)
	result := &ratelimit.RateLimitResult{Allowed: false, Limit: 1, ResetTime: time.Now().Add(-time.Second)}

	manager.Reject(ctx, result, nil)

	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode())
	assert.Equal(t, "0", string(ctx.Response.Header.Peek("Retry-After")))
}

func TestClose_Idempotent(t *testing.T) {
	manager := NewRateLimitManager(nil, logger.Nop())
	assert.NoError(t, manager.Close())
	assert.NoError(t, manager.Close())
}
