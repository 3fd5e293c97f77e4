package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
)

// ErrCatalogLoadFailed indicates the products document could not be read or
// parsed. The failure is recorded on the catalog repository before returning.
var ErrCatalogLoadFailed = errors.New("catalog loader: load failed")

// productDocument is the wire shape of one record in the products document and
// in the exported products.json.
type productDocument struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	Image     string  `json:"image,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func (d productDocument) toDomain() (domain.Product, error) {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return domain.Product{}, errors.New("product id is required")
	}
	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(d.CreatedAt))
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: parse created_at: %w", id, err)
	}
	return domain.Product{
		ID:        id,
		Name:      strings.TrimSpace(d.Name),
		Species:   strings.TrimSpace(d.Species),
		Price:     d.Price,
		Available: d.Available,
		Image:     strings.TrimSpace(d.Image),
		CreatedAt: createdAt.UTC(),
	}, nil
}

func documentFromProduct(p domain.Product) productDocument {
	return productDocument{
		ID:        p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Price:     p.Price,
		Available: p.Available,
		Image:     p.Image,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CatalogLoaderDeps wires the repository and document path for catalog loads.
type CatalogLoaderDeps struct {
	Repository   repositories.CatalogRepository
	DocumentPath string
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type catalogLoader struct {
	repo   repositories.CatalogRepository
	path   string
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCatalogLoader constructs a CatalogLoader enforcing dependency validation.
func NewCatalogLoader(deps CatalogLoaderDeps) (CatalogLoader, error) {
	if deps.Repository == nil {
		return nil, errors.New("catalog loader: repository is required")
	}
	if strings.TrimSpace(deps.DocumentPath) == "" {
		return nil, errors.New("catalog loader: document path is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogLoader{
		repo:   deps.Repository,
		path:   deps.DocumentPath,
		now:    func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// Load reads the products document and installs it as the catalog snapshot.
// Every failure mode, from a missing file to a malformed record, is treated
// uniformly: the catalog is marked failed and ErrCatalogLoadFailed returned.
func (l *catalogLoader) Load(ctx context.Context) (int, error) {
	products, err := l.readDocument()
	if err != nil {
		now := l.now()
		if markErr := l.repo.MarkLoadFailed(ctx, err.Error(), now); markErr != nil {
			l.logger(ctx, "catalog.load_mark_failed", map[string]any{"error": markErr.Error()})
		}
		l.logger(ctx, "catalog.load_failed", map[string]any{
			"path":  l.path,
			"error": err.Error(),
		})
		return 0, fmt.Errorf("%w: %v", ErrCatalogLoadFailed, err)
	}

	if err := l.repo.Replace(ctx, products, l.now()); err != nil {
		return 0, fmt.Errorf("%w: install snapshot: %v", ErrCatalogLoadFailed, err)
	}

	l.logger(ctx, "catalog.loaded", map[string]any{
		"path":     l.path,
		"products": len(products),
	})
	return len(products), nil
}

func (l *catalogLoader) readDocument() ([]domain.Product, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read products document: %w", err)
	}

	var docs []productDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse products document: %w", err)
	}

	products := make([]domain.Product, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		product, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		if _, ok := seen[product.ID]; ok {
			return nil, fmt.Errorf("duplicate product id %s", product.ID)
		}
		seen[product.ID] = struct{}{}
		products = append(products, product)
	}
	return products, nil
}
