package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Memory interface.
// Entries with a TTL are treated as absent once expired and are
// physically removed by Sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[string]memoryEntry
	logger Logger
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store:  make(map[string]memoryEntry),
		logger: &NoOpLogger{},
		now:    time.Now,
	}
}

// SetLogger configures the logger for this memory store
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Get retrieves a value. Missing and expired keys return "" with no error.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, exists := m.store[key]
	m.mu.RUnlock()

	switch {
	case !exists:
		m.logger.Debug("Cache miss", map[string]interface{}{
			"operation": "cache_get",
			"key":       key,
		})
		return "", nil
	case entry.expired(m.now()):
		m.logger.Debug("Cache entry expired", map[string]interface{}{
			"operation":  "cache_get",
			"key":        key,
			"expired_at": entry.expiresAt.Format(time.RFC3339),
		})
		return "", nil
	}

	m.logger.Debug("Cache hit", map[string]interface{}{
		"operation": "cache_get",
		"key":       key,
	})
	return entry.value, nil
}

// Set stores a value with optional TTL (0 = no expiry).
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = entry
	m.mu.Unlock()

	m.logger.Debug("Cache set", map[string]interface{}{
		"operation":  "cache_set",
		"key":        key,
		"value_size": len(value),
		"ttl":        ttl.String(),
	})
	return nil
}

// Delete removes a value from memory
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.store[key]
	delete(m.store, key)
	m.mu.Unlock()

	m.logger.Debug("Cache delete", map[string]interface{}{
		"operation": "cache_delete",
		"key":       key,
		"existed":   existed,
	})
	return nil
}

// Exists checks if a live key exists
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.store[key]
	return exists && !entry.expired(m.now()), nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.store {
		if entry.expired(now) {
			delete(m.store, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("Expired cache entries swept", map[string]interface{}{
						"operation": "cache_sweep",
						"removed":   n,
					})
				}
			}
		}
	}()
}
