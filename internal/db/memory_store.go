package db

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	version   int64
	updatedAt time.Time
}

// MemoryStore has the same semantics as ProgressStore without SQLite.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(key string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", 0, ErrNotFound
	}
	return e.value, e.version, nil
}

func (s *MemoryStore) Put(key, value string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e.version != expectedVersion {
		return 0, ErrVersionConflict
	}
	s.entries[key] = memoryEntry{value: value, version: expectedVersion + 1, updatedAt: updatedAt}
	return expectedVersion + 1, nil
}

func (s *MemoryStore) Count(prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && e.updatedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// SetRaw stores value without version checks, for seeding foreign payloads.
func (s *MemoryStore) SetRaw(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	s.entries[key] = memoryEntry{value: value, version: e.version + 1, updatedAt: time.Now()}
}
