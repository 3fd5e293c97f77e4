package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
)

const (
	productIDPrefix = "AP"
	productIDWidth  = 5

	maxProductNameLength    = 120
	maxProductSpeciesLength = 60
)

var (
	// ErrAdminCatalogInvalidInput indicates the caller supplied invalid input.
	ErrAdminCatalogInvalidInput = errors.New("admin catalog service: invalid input")
	// ErrAdminCatalogNotFound indicates the product does not exist.
	ErrAdminCatalogNotFound = errors.New("admin catalog service: not found")
	// ErrAdminCatalogConflict indicates the mutation collided with existing state.
	ErrAdminCatalogConflict = errors.New("admin catalog service: conflict")
	// ErrAdminCatalogNotLoaded indicates mutations were attempted before a successful catalog load.
	ErrAdminCatalogNotLoaded = errors.New("admin catalog service: catalog not loaded")
	// ErrAdminCatalogUnavailable indicates the service cannot fulfil the request due to backend issues.
	ErrAdminCatalogUnavailable = errors.New("admin catalog service: unavailable")
)

// AdminCatalogServiceDeps wires the repositories and collaborators for catalog administration.
type AdminCatalogServiceDeps struct {
	Catalog    repositories.CatalogRepository
	Images     ImageService
	ImageStore repositories.ImageRepository
	Loader     CatalogLoader
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type adminCatalogService struct {
	catalog    repositories.CatalogRepository
	images     ImageService
	imageStore repositories.ImageRepository
	loader     CatalogLoader
	policy     *bluemonday.Policy
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewAdminCatalogService constructs an AdminCatalogService enforcing dependency validation.
func NewAdminCatalogService(deps AdminCatalogServiceDeps) (AdminCatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("admin catalog service: catalog repository is required")
	}
	if deps.Images == nil {
		return nil, errors.New("admin catalog service: image service is required")
	}
	if deps.ImageStore == nil {
		return nil, errors.New("admin catalog service: image repository is required")
	}
	if deps.Loader == nil {
		return nil, errors.New("admin catalog service: catalog loader is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &adminCatalogService{
		catalog:    deps.Catalog,
		images:     deps.Images,
		imageStore: deps.ImageStore,
		loader:     deps.Loader,
		policy:     bluemonday.StrictPolicy(),
		now:        func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

// ListProducts returns the catalog snapshot with its load status.
func (s *adminCatalogService) ListProducts(ctx context.Context) ([]Product, CatalogInfo, error) {
	info, err := s.catalog.Info(ctx)
	if err != nil {
		return nil, CatalogInfo{}, ErrAdminCatalogUnavailable
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, CatalogInfo{}, ErrAdminCatalogUnavailable
	}
	return products, info, nil
}

// GetProduct returns one product by identifier.
func (s *adminCatalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrAdminCatalogInvalidInput)
	}
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

// CreateProduct generates the next sequential identifier, inserts the product
// at the front of the catalog, and queues a re-encode when an image upload is
// attached.
func (s *adminCatalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (ProductMutationResult, error) {
	if err := s.requireLoaded(ctx); err != nil {
		return ProductMutationResult{}, err
	}

	name, species, err := s.sanitizeFields(cmd.Name, cmd.Species)
	if err != nil {
		return ProductMutationResult{}, err
	}
	if err := validatePrice(cmd.Price); err != nil {
		return ProductMutationResult{}, err
	}

	products, err := s.catalog.List(ctx)
	if err != nil {
		return ProductMutationResult{}, ErrAdminCatalogUnavailable
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	product := domain.Product{
		ID:        nextProductID(ids),
		Name:      name,
		Species:   species,
		Price:     cmd.Price,
		Available: cmd.Available,
		CreatedAt: s.now(),
	}
	if err := s.catalog.Insert(ctx, product); err != nil {
		return ProductMutationResult{}, s.translateRepoError(err)
	}

	s.logger(ctx, "admin.product_created", map[string]any{
		"product_id": product.ID,
		"species":    product.Species,
	})

	result := ProductMutationResult{Product: product}
	result.ImageJob = s.queueImage(ctx, product.ID, product.Name, cmd.Image)
	return result, nil
}

// UpdateProduct mutates the product's form fields in place. The identifier and
// creation timestamp never change.
func (s *adminCatalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (ProductMutationResult, error) {
	if err := s.requireLoaded(ctx); err != nil {
		return ProductMutationResult{}, err
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return ProductMutationResult{}, fmt.Errorf("%w: product id is required", ErrAdminCatalogInvalidInput)
	}
	name, species, err := s.sanitizeFields(cmd.Name, cmd.Species)
	if err != nil {
		return ProductMutationResult{}, err
	}
	if err := validatePrice(cmd.Price); err != nil {
		return ProductMutationResult{}, err
	}

	existing, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return ProductMutationResult{}, s.translateRepoError(err)
	}

	updated := existing
	updated.Name = name
	updated.Species = species
	updated.Price = cmd.Price
	updated.Available = cmd.Available

	if err := s.catalog.Update(ctx, updated); err != nil {
		return ProductMutationResult{}, s.translateRepoError(err)
	}

	s.logger(ctx, "admin.product_updated", map[string]any{
		"product_id": updated.ID,
	})

	result := ProductMutationResult{Product: updated}
	result.ImageJob = s.queueImage(ctx, updated.ID, updated.Name, cmd.Image)
	return result, nil
}

// DeleteProduct removes the product from the catalog snapshot.
func (s *adminCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.requireLoaded(ctx); err != nil {
		return err
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrAdminCatalogInvalidInput)
	}
	if err := s.catalog.Delete(ctx, productID); err != nil {
		return s.translateRepoError(err)
	}

	s.logger(ctx, "admin.product_deleted", map[string]any{
		"product_id": productID,
	})
	return nil
}

// PendingChanges returns the identifiers mutated since the last load.
func (s *adminCatalogService) PendingChanges(ctx context.Context) ([]string, error) {
	pending, err := s.catalog.PendingChanges(ctx)
	if err != nil {
		return nil, ErrAdminCatalogUnavailable
	}
	return pending, nil
}

// Reload re-reads the products document, discarding every in-memory mutation
// and the re-encoded images that went with them. A purge failure leaves stale
// images behind but does not fail the reload.
func (s *adminCatalogService) Reload(ctx context.Context) (int, error) {
	count, err := s.loader.Load(ctx)
	if err != nil {
		return 0, err
	}

	cleared, err := s.imageStore.Clear(ctx)
	if err != nil {
		s.logger(ctx, "admin.image_store_clear_failed", map[string]any{"error": err.Error()})
	}

	s.logger(ctx, "admin.catalog_reloaded", map[string]any{
		"products":       count,
		"images_cleared": cleared,
	})
	return count, nil
}

// queueImage submits an uploaded image for re-encoding. Queue failures do not
// fail the product mutation; the returned job record carries the outcome.
func (s *adminCatalogService) queueImage(ctx context.Context, productID, name string, data []byte) *domain.ImageJob {
	if len(data) == 0 {
		return nil
	}
	job, err := s.images.QueueReEncode(ctx, QueueImageReEncodeCommand{
		ProductID:   productID,
		ProductName: name,
		Data:        data,
	})
	if err != nil {
		s.logger(ctx, "admin.image_queue_failed", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
		if job.ID == "" {
			return nil
		}
	}
	return &job
}

func (s *adminCatalogService) requireLoaded(ctx context.Context) error {
	info, err := s.catalog.Info(ctx)
	if err != nil {
		return ErrAdminCatalogUnavailable
	}
	if info.Status != domain.CatalogStatusReady {
		return ErrAdminCatalogNotLoaded
	}
	return nil
}

// sanitizeFields strips markup from the form fields and enforces the length
// limits. Sanitized output is unescaped so plain text like "Fish & Chips"
// round-trips unchanged.
func (s *adminCatalogService) sanitizeFields(name, species string) (string, string, error) {
	name = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(name)))
	species = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(species)))

	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", ErrAdminCatalogInvalidInput)
	}
	if len(name) > maxProductNameLength {
		return "", "", fmt.Errorf("%w: name must be %d characters or fewer", ErrAdminCatalogInvalidInput, maxProductNameLength)
	}
	if species == "" {
		return "", "", fmt.Errorf("%w: species is required", ErrAdminCatalogInvalidInput)
	}
	if len(species) > maxProductSpeciesLength {
		return "", "", fmt.Errorf("%w: species must be %d characters or fewer", ErrAdminCatalogInvalidInput, maxProductSpeciesLength)
	}
	return name, species, nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be a finite number", ErrAdminCatalogInvalidInput)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrAdminCatalogInvalidInput)
	}
	return nil
}

func (s *adminCatalogService) translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isRepoNotFound(err):
		return ErrAdminCatalogNotFound
	case isRepoConflict(err):
		return ErrAdminCatalogConflict
	}
	return ErrAdminCatalogUnavailable
}

// nextProductID parses the numeric suffix of every existing identifier, takes
// the maximum, and formats the increment with the fixed prefix and width.
func nextProductID(ids []string) string {
	highest := 0
	for _, id := range ids {
		if n, ok := numericSuffix(id); ok && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", productIDPrefix, productIDWidth, highest+1)
}

func numericSuffix(id string) (int, bool) {
	id = strings.TrimSpace(id)
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}
