package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It backs the
// `storage.backend: memory` config value and is the store handed to tests.
// All values are copied on the way in and out so callers can never alias the
// stored bytes.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	audit  []AuditEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// Get fetches the values for the given keys. Keys without a stored value are
// omitted from the result map.
func (s *MemoryStore) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		value, ok := s.values[key]
		if !ok {
			continue
		}
		cp := make(json.RawMessage, len(value))
		copy(cp, value)
		out[key] = cp
	}
	return out, nil
}

// Set upserts all given key/value pairs. Validation happens before any write
// so a rejected value never leaves a partial update behind.
func (s *MemoryStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	for key, value := range values {
		if !json.Valid(value) {
			return fmt.Errorf("set %q: value is not valid JSON", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range values {
		cp := make(json.RawMessage, len(value))
		copy(cp, value)
		s.values[key] = cp
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (s *MemoryStore) Delete(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Audit appends the entry to the in-memory audit trail.
func (s *MemoryStore) Audit(ctx context.Context, entry AuditEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// AuditTrail returns a copy of all recorded audit entries, oldest first.
// Tests use it to assert on tracker activity.
func (s *MemoryStore) AuditTrail() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEntry(nil), s.audit...)
}

// Stats returns aggregate statistics about the store.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		Keys:         int64(len(s.values)),
		AuditEntries: int64(len(s.audit)),
	}
	if n := len(s.audit); n > 0 {
		stats.LastAction = s.audit[n-1].Action
		stats.LastActionAt = s.audit[n-1].At
	}
	for _, value := range s.values {
		stats.DatabaseSizeBytes += int64(len(value))
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
