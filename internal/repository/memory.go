package repository

import (
	"context"
	"sync"
	"time"
)

// memoryPurgeInterval bounds how often CheckRateLimit sweeps expired windows.
const memoryPurgeInterval = time.Minute

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryRateLimitStore keeps fixed-window counters in process memory.
// Expired windows are swept from CheckRateLimit at most once per memoryPurgeInterval.
type MemoryRateLimitStore struct {
	mu            sync.Mutex
	entries       map[string]*rateLimitEntry
	now           func() time.Time
	purgeInterval time.Duration
	lastPurge     time.Time
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		entries:       make(map[string]*rateLimitEntry),
		now:           time.Now,
		purgeInterval: memoryPurgeInterval,
	}
}

func (r *MemoryRateLimitStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastPurge) >= r.purgeInterval {
		r.purgeLocked(now)
	}

	entry, ok := r.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Purge drops expired windows.
func (r *MemoryRateLimitStore) Purge() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.purgeLocked(r.now())
}

func (r *MemoryRateLimitStore) purgeLocked(now time.Time) int {
	r.lastPurge = now
	removed := 0
	for key, entry := range r.entries {
		if now.After(entry.expiresAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}
