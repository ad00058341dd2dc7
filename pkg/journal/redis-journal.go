package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"hurlfix/pkg/models"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJournal stores entries in a capped Redis list so several hurlfix
// instances behind one test run share a single history.
type RedisJournal struct {
	client   *redis.Client
	key      string
	capacity uint64
	ttl      time.Duration
}

func NewRedisJournal(config *models.RedisConfig, capacity uint64, ttl time.Duration) *RedisJournal {
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
		namespace = "hurlfix:"
	} else if namespace[len(namespace)-1] != ':' {
		namespace += ":"
	}

	if ttl <= 0 {
		ttl = config.DefaultTTL
	}
	if capacity == 0 {
		capacity = 1000
	}

	return &RedisJournal{
		client:   client,
		key:      namespace + "journal",
		capacity: capacity,
		ttl:      ttl,
	}
}

func (r *RedisJournal) Record(ctx context.Context, entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, payload)
		pipe.LTrim(ctx, r.key, 0, int64(r.capacity)-1)
		if r.ttl > 0 {
			pipe.PExpire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (r *RedisJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("corrupt journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *RedisJournal) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisJournal) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *RedisJournal) Close() error {
	return r.client.Close()
}
