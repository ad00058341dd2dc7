package ratelimit

import (
	"hurlfix/pkg/utils/logger"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	limit    int64
	window   time.Duration
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per key. A bucket holds limit
// tokens and refills limit tokens per window.
type MemoryRateLimiter struct {
	buckets   map[string]*bucket
	mu        sync.Mutex
	ttl       time.Duration
	logger    *logger.Logger
	now       func() time.Time
	stopChan  chan struct{}
	closeOnce sync.Once
}

// NewMemoryRateLimiter evicts buckets idle for more than two windows.
func NewMemoryRateLimiter(window time.Duration, log *logger.Logger) *MemoryRateLimiter {
	if log == nil {
		log = logger.Nop()
	}
	limiter := &MemoryRateLimiter{
		buckets:  make(map[string]*bucket),
		ttl:      window * 2,
		logger:   log.WithComponent("ratelimit.memory"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (m *MemoryRateLimiter) AllowWithLimit(key string, limit int64, window time.Duration) (bool, int64, time.Time) {
	now := m.now()
	if limit <= 0 || window <= 0 {
		return false, 0, now.Add(window)
	}

	m.mu.Lock()
	b, exists := m.buckets[key]
	if !exists || b.limit != limit || b.window != window {
		b = &bucket{
			limiter: rate.NewLimiter(refillRate(limit, window), int(limit)),
			limit:   limit,
			window:  window,
		}
		m.buckets[key] = b
		m.logger.Debug().Str("key", key).Int64("limit", limit).Dur("window", window).Msg("created token bucket")
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	m.mu.Unlock()

	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	missing := float64(limit) - tokens
	if !allowed {
		missing = 1 - tokens
	}
	resetTime := now
	if missing > 0 {
		seconds := missing / float64(refillRate(limit, window))
		resetTime = now.Add(time.Duration(seconds * float64(time.Second)))
	}

	return allowed, remaining, resetTime
}

func refillRate(limit int64, window time.Duration) rate.Limit {
	return rate.Limit(float64(limit) / window.Seconds())
}

func (m *MemoryRateLimiter) cleanup() {
	if m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopChan:
			return
		}
	}
}

func (m *MemoryRateLimiter) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.ttl {
			delete(m.buckets, key)
		}
	}
}

func (m *MemoryRateLimiter) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, key)
}

func (m *MemoryRateLimiter) Health() error {
	return nil
}

func (m *MemoryRateLimiter) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.mu.Lock()
		m.buckets = make(map[string]*bucket)
		m.mu.Unlock()
	})
	return nil
}
