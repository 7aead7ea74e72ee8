package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCache implements MaskCache with in-memory storage. Suitable for
// single-instance deployments; multi-instance deployments should use Redis so
// invalidation reaches every process.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*maskItem
	done chan struct{}
}

type maskItem struct {
	mask       uint64
	expiration time.Time
}

// NewMemoryCache creates a new in-memory mask cache
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		data: make(map[string]*maskItem),
		done: make(chan struct{}),
	}

	// Start cleanup goroutine
	go mc.cleanup()

	return mc
}

// Get retrieves a membership's cached mask
func (m *MemoryCache) Get(ctx context.Context, membershipID uuid.UUID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.data[maskKey(membershipID)]
	if !exists {
		return 0, ErrCacheMiss
	}

	if time.Now().After(item.expiration) {
		return 0, ErrCacheMiss
	}

	return item.mask, nil
}

// Set stores a membership's mask
func (m *MemoryCache) Set(ctx context.Context, membershipID uuid.UUID, mask uint64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[maskKey(membershipID)] = &maskItem{
		mask:       mask,
		expiration: time.Now().Add(ttl),
	}

	return nil
}

// Invalidate drops a membership's cached mask
func (m *MemoryCache) Invalidate(ctx context.Context, membershipID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, maskKey(membershipID))
	return nil
}

// cleanup periodically removes expired items
func (m *MemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, item := range m.data {
				if now.After(item.expiration) {
					delete(m.data, key)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Close closes the memory cache
func (m *MemoryCache) Close() error {
	close(m.done)
	return nil
}
