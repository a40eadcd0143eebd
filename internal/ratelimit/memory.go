package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. Suitable for tests and
// single-node deployments.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: map[string]memoryCounter{}, now: time.Now}
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = memoryCounter{count: 0, resetAt: now.Add(window)}
	}
	c.count++
	s.counters[key] = c
	return c.count, c.resetAt, nil
}

func (s *MemoryStore) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.resetAt) {
		return 0, time.Time{}, nil
	}
	return c.count, c.resetAt, nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = map[string]memoryCounter{}
	return nil
}
