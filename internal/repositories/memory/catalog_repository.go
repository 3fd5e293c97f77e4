package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/pawmart/api/internal/domain"
)

// CatalogRepository holds the catalog snapshot in memory. Products keep the
// order established at load time (descending creation timestamp) with new
// products inserted at the front. Every mutation records the affected product
// ID in the pending-changes set until the next Replace.
type CatalogRepository struct {
	mu       sync.Mutex
	products []domain.Product
	pending  map[string]struct{}
	info     domain.CatalogInfo
}

// NewCatalogRepository constructs an empty catalog repository. The catalog is
// not ready until Replace or MarkLoadFailed records a load attempt.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: []domain.Product{},
		pending:  make(map[string]struct{}),
	}
}

// List returns a copy of the catalog snapshot in display order.
func (r *CatalogRepository) List(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// Get returns the product with the given ID.
func (r *CatalogRepository) Get(_ context.Context, productID string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(productID)
	if idx < 0 {
		return domain.Product{}, notFoundError("catalog repository: get", "product "+productID+" not found")
	}
	return r.products[idx], nil
}

// Insert places the product at the front of the snapshot so it sorts as newest.
func (r *CatalogRepository) Insert(_ context.Context, product domain.Product) error {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return invalidError("catalog repository: insert", "product id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(id) >= 0 {
		return conflictError("catalog repository: insert", "product "+id+" already exists")
	}
	r.products = append([]domain.Product{product}, r.products...)
	r.info.ProductCount = len(r.products)
	r.pending[id] = struct{}{}
	return nil
}

// Update replaces the stored record in place, keeping its position.
func (r *CatalogRepository) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(product.ID)
	if idx < 0 {
		return notFoundError("catalog repository: update", "product "+product.ID+" not found")
	}
	r.products[idx] = product
	r.pending[product.ID] = struct{}{}
	return nil
}

// Delete removes the record with the given ID from the snapshot.
func (r *CatalogRepository) Delete(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(productID)
	if idx < 0 {
		return notFoundError("catalog repository: delete", "product "+productID+" not found")
	}
	r.products = append(r.products[:idx], r.products[idx+1:]...)
	r.info.ProductCount = len(r.products)
	r.pending[productID] = struct{}{}
	return nil
}

// Replace installs a fresh snapshot sorted by descending creation timestamp,
// clears the pending-changes set, and marks the catalog ready.
func (r *CatalogRepository) Replace(_ context.Context, products []domain.Product, loadedAt time.Time) error {
	snapshot := make([]domain.Product, len(products))
	copy(snapshot, products)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.After(snapshot[j].CreatedAt)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products = snapshot
	r.pending = make(map[string]struct{})
	r.info = domain.CatalogInfo{
		Status:       domain.CatalogStatusReady,
		ProductCount: len(snapshot),
		LoadedAt:     loadedAt.UTC(),
	}
	return nil
}

// MarkLoadFailed records a failed load attempt. The previous snapshot, if any,
// is discarded so the storefront reports the failure uniformly.
func (r *CatalogRepository) MarkLoadFailed(_ context.Context, loadErr string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products = []domain.Product{}
	r.pending = make(map[string]struct{})
	r.info = domain.CatalogInfo{
		Status:    domain.CatalogStatusFailed,
		LoadedAt:  failedAt.UTC(),
		LoadError: loadErr,
	}
	return nil
}

// Info reports the load status of the catalog.
func (r *CatalogRepository) Info(_ context.Context) (domain.CatalogInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.info
	info.ProductCount = len(r.products)
	return info, nil
}

// PendingChanges returns the IDs mutated since the last Replace, sorted for
// stable output.
func (r *CatalogRepository) PendingChanges(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *CatalogRepository) indexOf(productID string) int {
	for i := range r.products {
		if r.products[i].ID == productID {
			return i
		}
	}
	return -1
}
