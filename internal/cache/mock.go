package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process fallback used when no Redis URL is
// configured. Entries live for the duration of the process only.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]bool)}
}

func (m *MemoryCache) Close() error {
	return nil
}

func (m *MemoryCache) IsSeen(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MemoryCache) MarkSeen(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = true
	return nil
}
