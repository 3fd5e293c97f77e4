package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/pawmart/api/internal/domain"
)

type stateRecord struct {
	state     domain.StorefrontState
	expiresAt time.Time
}

// SessionRepository keeps per-session browsing state with a sliding TTL.
// Sessions that have never saved state browse with the defaults.
type SessionRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]stateRecord
}

// NewSessionRepository constructs an empty session repository.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		ttl:     ttl,
		records: make(map[string]stateRecord),
	}
}

// GetState returns the browsing state stored for the session.
func (r *SessionRepository) GetState(_ context.Context, sessionID string) (domain.StorefrontState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[sessionID]
	if !ok {
		return domain.StorefrontState{}, notFoundError("session repository: get", "state for session not found")
	}
	return record.state, nil
}

// SaveState stores the browsing state and refreshes the TTL.
func (r *SessionRepository) SaveState(_ context.Context, sessionID string, state domain.StorefrontState, now time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalidError("session repository: save", "session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[sessionID] = stateRecord{
		state:     state,
		expiresAt: now.UTC().Add(r.ttl),
	}
	return nil
}

// CleanupExpired removes states whose TTL has lapsed, up to limit records.
func (r *SessionRepository) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}

	removed := 0
	for id, record := range r.records {
		if record.expiresAt.IsZero() || now.Before(record.expiresAt) {
			continue
		}
		delete(r.records, id)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed, nil
}
