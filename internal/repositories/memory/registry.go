package memory

import (
	"errors"
	"time"

	"github.com/pawmart/api/internal/repositories"
)

// RegistryDeps configures the memory-backed repository registry.
type RegistryDeps struct {
	ImagesDir  string
	SessionTTL time.Duration
}

// Registry bundles the memory repositories behind the repositories.Registry
// interface.
type Registry struct {
	catalog  *CatalogRepository
	carts    *CartRepository
	sessions *SessionRepository
	images   *ImageStore
	jobs     *ImageJobRepository
}

// NewRegistry constructs the full set of memory repositories.
func NewRegistry(deps RegistryDeps) (*Registry, error) {
	if deps.SessionTTL <= 0 {
		return nil, errors.New("memory registry requires a positive session ttl")
	}
	images, err := NewImageStore(deps.ImagesDir)
	if err != nil {
		return nil, err
	}
	return &Registry{
		catalog:  NewCatalogRepository(),
		carts:    NewCartRepository(deps.SessionTTL),
		sessions: NewSessionRepository(deps.SessionTTL),
		images:   images,
		jobs:     NewImageJobRepository(),
	}, nil
}

// Catalog implements repositories.Registry.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Carts implements repositories.Registry.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Sessions implements repositories.Registry.
func (r *Registry) Sessions() repositories.SessionRepository { return r.sessions }

// Images implements repositories.Registry.
func (r *Registry) Images() repositories.ImageRepository { return r.images }

// ImageJobs implements repositories.Registry.
func (r *Registry) ImageJobs() repositories.ImageJobRepository { return r.jobs }
