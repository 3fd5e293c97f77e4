package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/pawmart/api/internal/domain"
)

type cartRecord struct {
	cart      domain.Cart
	expiresAt time.Time
}

// CartRepository keeps one cart per shopper session with a sliding TTL.
type CartRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]cartRecord
}

// NewCartRepository constructs an empty cart repository. Carts expire ttl after
// their last write.
func NewCartRepository(ttl time.Duration) *CartRepository {
	return &CartRepository{
		ttl:     ttl,
		records: make(map[string]cartRecord),
	}
}

// GetCart returns the cart stored for the session.
func (r *CartRepository) GetCart(_ context.Context, sessionID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[sessionID]
	if !ok {
		return domain.Cart{}, notFoundError("cart repository: get", "cart for session not found")
	}
	return cloneCart(record.cart), nil
}

// UpsertCart stores the cart keyed by its session ID and refreshes the TTL.
func (r *CartRepository) UpsertCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return domain.Cart{}, invalidError("cart repository: upsert", "session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneCart(cart)
	stored.SessionID = sessionID
	r.records[sessionID] = cartRecord{
		cart:      stored,
		expiresAt: stored.UpdatedAt.UTC().Add(r.ttl),
	}
	return cloneCart(stored), nil
}

// DeleteCart removes the cart stored for the session. Deleting a missing cart
// is a no-op.
func (r *CartRepository) DeleteCart(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, sessionID)
	return nil
}

// CleanupExpired removes carts whose TTL has lapsed, up to limit records.
func (r *CartRepository) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
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

func cloneCart(cart domain.Cart) domain.Cart {
	out := cart
	out.Entries = make([]domain.CartEntry, len(cart.Entries))
	copy(out.Entries, cart.Entries)
	return out
}
