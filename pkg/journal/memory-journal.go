package journal

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryJournal is a bounded in-process journal. The oldest entry is
// evicted once capacity is reached; entries older than ttl are dropped.
type MemoryJournal struct {
	capacity uint64
	ttl      time.Duration
	mu       sync.Mutex
	order    *list.List
	now      func() time.Time
}

func NewMemoryJournal(capacity uint64, ttl time.Duration) *MemoryJournal {
	if capacity == 0 {
		panic("capacity must be > 0")
	}
	return &MemoryJournal{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		now:      time.Now,
	}
}

func (j *MemoryJournal) Record(_ context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Time.IsZero() {
		entry.Time = j.now()
	}

	j.order.PushFront(entry)
	for uint64(j.order.Len()) > j.capacity {
		j.order.Remove(j.order.Back())
	}
	return nil
}

func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.expire()

	n := j.order.Len()
	if limit > 0 && limit < n {
		n = limit
	}

	entries := make([]Entry, 0, n)
	for e := j.order.Front(); e != nil && len(entries) < n; e = e.Next() {
		entries = append(entries, e.Value.(Entry))
	}
	return entries, nil
}

func (j *MemoryJournal) Clear(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.order.Init()
	return nil
}

func (j *MemoryJournal) Len(_ context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.expire()
	return j.order.Len(), nil
}

func (j *MemoryJournal) Close() error {
	return nil
}

// expire drops entries past their ttl. Entries are ordered newest first, so
// the scan stops at the first live one from the back.
func (j *MemoryJournal) expire() {
	if j.ttl <= 0 {
		return
	}
	cutoff := j.now().Add(-j.ttl)
	for back := j.order.Back(); back != nil; back = j.order.Back() {
		if !back.Value.(Entry).Time.Before(cutoff) {
			return
		}
		j.order.Remove(back)
	}
}
