package repositories

import (
	"context"
	"time"

	domain "github.com/pawmart/api/internal/domain"
)

// Registry exposes typed repository accessors for dependency wiring.
type Registry interface {
	Catalog() CatalogRepository
	Carts() CartRepository
	Sessions() SessionRepository
	Images() ImageRepository
	ImageJobs() ImageJobRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository owns the catalog snapshot loaded from the products document
// together with the set of product IDs mutated since that load. Mutations are
// recorded in the pending set by the repository itself; Replace installs a fresh
// snapshot and clears it.
type CatalogRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	Replace(ctx context.Context, products []domain.Product, loadedAt time.Time) error
	MarkLoadFailed(ctx context.Context, loadErr string, failedAt time.Time) error
	Info(ctx context.Context) (domain.CatalogInfo, error)
	PendingChanges(ctx context.Context) ([]string, error)
}

// CartRepository persists one cart per shopper session.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	DeleteCart(ctx context.Context, sessionID string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// SessionRepository persists per-session browsing state with a sliding TTL.
type SessionRepository interface {
	GetState(ctx context.Context, sessionID string) (domain.StorefrontState, error)
	SaveState(ctx context.Context, sessionID string, state domain.StorefrontState, now time.Time) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ImageRepository stores re-encoded product images keyed by file name. Clear
// empties the store; it runs as part of a catalog reload and reports how many
// images were removed.
type ImageRepository interface {
	Save(ctx context.Context, image domain.EncodedImage) error
	Get(ctx context.Context, fileName string) (domain.EncodedImage, error)
	List(ctx context.Context) ([]domain.EncodedImage, error)
	Delete(ctx context.Context, fileName string) error
	Clear(ctx context.Context) (int, error)
}

// ImageJobRepository persists image re-encode job metadata and lifecycle state.
type ImageJobRepository interface {
	Insert(ctx context.Context, job domain.ImageJob) (domain.ImageJob, error)
	FindByID(ctx context.Context, jobID string) (domain.ImageJob, error)
	UpdateStatus(ctx context.Context, jobID string, status domain.ImageJobStatus, update ImageJobStatusUpdate) (domain.ImageJob, error)
}

// ImageJobStatusUpdate carries optional fields to mutate during a status transition.
type ImageJobStatusUpdate struct {
	FileName    *string
	Error       *string
	CompletedAt *time.Time
}
