package cache

import (
	"context"
	"sync"
	"time"
)

const (
	defaultMaxEntries      = 1024
	defaultJanitorInterval = time.Minute
)

type memoryEntry struct {
	value    string
	expireAt time.Time // zero means no expiry
	storedAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// MemoryCache is an in-process Service. Expired entries are dropped
// lazily on read and swept by a background janitor; when the cache is
// full the oldest entry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxEntries caps the number of stored entries.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryCache) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// NewMemoryCache creates a memory cache and starts its janitor.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	m := &MemoryCache{
		entries:     make(map[string]memoryEntry),
		maxEntries:  defaultMaxEntries,
		stopJanitor: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor(defaultJanitorInterval)
	return m
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()
	entry := memoryEntry{value: value, storedAt: now}
	if ttl > 0 {
		entry.expireAt = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked(now)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrCacheMiss
	}
	if entry.expired(time.Now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Close stops the janitor and drops all entries.
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stopJanitor) })
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// evictOldestLocked removes an expired entry if one exists, otherwise
// the entry stored longest ago. Callers hold the write lock.
func (m *MemoryCache) evictOldestLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			return
		}
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopJanitor:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, entry := range m.entries {
				if entry.expired(now) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
