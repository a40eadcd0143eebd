package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      map[string]any
	expiresAt time.Time
}

// MemoryBackend keeps sessions in process memory. Suitable for tests and
// single-node development; production deployments use the redis backend.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]memoryEntry{}, now: time.Now}
}

func (b *MemoryBackend) Load(ctx context.Context, id string) (map[string]any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, false, nil
	}
	if b.now().After(e.expiresAt) {
		delete(b.entries, id)
		return nil, false, nil
	}

	// copy so the caller can mutate freely
	data := make(map[string]any, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return data, true, nil
}

func (b *MemoryBackend) Save(ctx context.Context, id string, data map[string]any, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	b.entries[id] = memoryEntry{data: copied, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
	return nil
}
