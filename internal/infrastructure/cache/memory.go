package cache

import (
	"context"
	"sync"
	"time"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
)

// MemoryProfileCache is an in-process profile cache with expiration, used
// when Redis is disabled
type MemoryProfileCache struct {
	mu    sync.RWMutex
	items map[string]*memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	profile    entities.Profile
	expireTime time.Time
}

var _ session.ProfileCache = (*MemoryProfileCache)(nil)

// NewMemoryProfileCache creates a new in-memory cache
func NewMemoryProfileCache(ttl time.Duration) *MemoryProfileCache {
	return &MemoryProfileCache{
		items: make(map[string]*memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Set stores a profile for the cache's TTL
func (ms *MemoryProfileCache) Set(_ context.Context, userID string, profile entities.Profile) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[userID] = &memoryItem{
		profile:    profile,
		expireTime: ms.now().Add(ms.ttl),
	}
}

// Get retrieves a profile (false if not found or expired)
func (ms *MemoryProfileCache) Get(_ context.Context, userID string) (entities.Profile, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[userID]
	if !exists || ms.now().After(item.expireTime) {
		return entities.Profile{}, false
	}
	return item.profile, true
}

// Run removes expired items every interval until ctx is done
func (ms *MemoryProfileCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.cleanupExpired()
		}
	}
}

func (ms *MemoryProfileCache) cleanupExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, item := range ms.items {
		if now.After(item.expireTime) {
			delete(ms.items, key)
		}
	}
}
