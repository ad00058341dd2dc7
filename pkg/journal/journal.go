// Package journal keeps a bounded history of the exchanges served by hurlfix
// so a test suite can inspect what its client actually sent.
package journal

import (
	"context"
	"fmt"
	"hurlfix/pkg/models"
	"strings"
	"time"
)

type Entry struct {
	ID           string        `json:"id"`
	Time         time.Time     `json:"time"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	Query        string        `json:"query,omitempty"`
	RemoteIP     string        `json:"remoteIp"`
	Fixture      string        `json:"fixture,omitempty"`
	Status       int           `json:"status"`
	ResponseSize int           `json:"responseSize"`
	RequestBody  []byte        `json:"requestBody,omitempty"`
	Duration     time.Duration `json:"duration"`
}

type IJournal interface {
	Record(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// New builds the journal backend selected by config. A disabled journal is nil.
func New(config *models.JournalConfig) (IJournal, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	capacity := config.Capacity
	if capacity == 0 {
		capacity = 1000
	}

	switch strings.ToLower(config.Storage) {
	case "", models.JOURNAL_STORAGE_MEMORY:
		return NewMemoryJournal(capacity, config.Ttl), nil
	case models.JOURNAL_STORAGE_REDIS:
		if config.Redis == nil {
			return nil, fmt.Errorf("redis configuration required for redis journal")
		}
		return NewRedisJournal(config.Redis, capacity, config.Ttl), nil
	default:
		return nil, fmt.Errorf("unsupported journal storage type: %s", config.Storage)
	}
}

// Truncate caps a captured body at max bytes. max == 0 keeps nothing.
func Truncate(body []byte, max uint64) []byte {
	if max == 0 || len(body) == 0 {
		return nil
	}
	if uint64(len(body)) > max {
		body = body[:max]
	}
	return append([]byte(nil), body...)
}
