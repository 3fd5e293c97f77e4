package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps idempotency records in process memory. Records survive
// until they expire or the process restarts, the same lifetime as the
// in-memory catalog the guarded mutations operate on.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	fingerprint string
	done        bool
	response    StoredResponse
	expiresAt   time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Begin implements Store.
func (s *MemoryStore) Begin(_ context.Context, key Key, now time.Time, ttl time.Duration) (Outcome, *StoredResponse, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.id()
	entry := s.entries[id]
	if entry == nil || !now.Before(entry.expiresAt) {
		s.entries[id] = &memoryEntry{
			fingerprint: key.Fingerprint,
			expiresAt:   now.Add(ttl),
		}
		return OutcomeProceed, nil, nil
	}
	if entry.fingerprint != key.Fingerprint {
		return OutcomeProceed, nil, ErrKeyConflict
	}
	if !entry.done {
		return OutcomeInFlight, nil, nil
	}
	resp := entry.response.clone()
	return OutcomeReplay, &resp, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, key Key, resp StoredResponse, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.id()
	entry := s.entries[id]
	if entry == nil {
		entry = &memoryEntry{fingerprint: key.Fingerprint}
		s.entries[id] = entry
	}
	if entry.fingerprint != key.Fingerprint {
		return ErrKeyConflict
	}

	entry.done = true
	entry.response = StoredResponse{
		Status: resp.Status,
		Header: replayableHeader(resp.Header),
		Body:   append([]byte(nil), resp.Body...),
	}
	entry.expiresAt = now.Add(ttl)
	return nil
}

// Abort implements Store.
func (s *MemoryStore) Abort(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key.id())
	return nil
}

// CleanupExpired implements Store.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	removed := 0
	for id, entry := range s.entries {
		if removed >= limit {
			break
		}
		if now.Before(entry.expiresAt) {
			continue
		}
		delete(s.entries, id)
		removed++
	}
	return removed, nil
}
