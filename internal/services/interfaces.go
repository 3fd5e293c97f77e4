package services

import (
	"context"
	"io"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/storefront"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product         = domain.Product
	Cart            = domain.Cart
	CartEntry       = domain.CartEntry
	StorefrontState = domain.StorefrontState
	CatalogInfo     = domain.CatalogInfo
	ImageJob        = domain.ImageJob
	EncodedImage    = domain.EncodedImage
)

// CatalogLoader loads the products document into the catalog repository. It is
// run once at startup and again on every admin-triggered reload.
type CatalogLoader interface {
	Load(ctx context.Context) (int, error)
}

// StorefrontService owns per-session browsing state and derives the render
// instructions for the storefront page.
type StorefrontService interface {
	GetView(ctx context.Context, query StorefrontViewQuery) (storefront.View, error)
	ApplyCommand(ctx context.Context, cmd ApplyStorefrontCommand) (storefront.View, error)
}

// StorefrontViewQuery identifies the session and surface requesting a view.
type StorefrontViewQuery struct {
	SessionID    string
	Capabilities []storefront.Capability
}

// ApplyStorefrontCommand carries one reducer command for a session.
type ApplyStorefrontCommand struct {
	SessionID    string
	Command      storefront.Command
	Capabilities []storefront.Capability
}

// CartService manages the per-session cart and the outbound order link.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (Cart, error)
	SetSelection(ctx context.Context, cmd SetCartSelectionCommand) (Cart, error)
	BuildOrderLink(ctx context.Context, sessionID string) (OrderLink, error)
}

// SetCartSelectionCommand toggles one product in or out of the session cart.
type SetCartSelectionCommand struct {
	SessionID string
	ProductID string
	Selected  bool
}

// OrderLink is the outbound messaging deep link for the current cart.
type OrderLink struct {
	Recipient string
	Message   string
	URL       string
}

// AdminCatalogService owns catalog mutations, the pending-changes set, and
// catalog reloads.
type AdminCatalogService interface {
	ListProducts(ctx context.Context) ([]Product, CatalogInfo, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (ProductMutationResult, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (ProductMutationResult, error)
	DeleteProduct(ctx context.Context, productID string) error
	PendingChanges(ctx context.Context) ([]string, error)
	Reload(ctx context.Context) (int, error)
}

// CreateProductCommand carries the admin form fields for a new product. Image
// holds the raw uploaded file when one was provided.
type CreateProductCommand struct {
	Name      string
	Species   string
	Price     float64
	Available bool
	Image     []byte
}

// UpdateProductCommand mutates an existing product. The identifier and
// creation timestamp never change.
type UpdateProductCommand struct {
	ProductID string
	Name      string
	Species   string
	Price     float64
	Available bool
	Image     []byte
}

// ProductMutationResult returns the stored product and, when an image upload
// was part of the mutation, the queued re-encode job.
type ProductMutationResult struct {
	Product  Product
	ImageJob *ImageJob
}

// ImageService runs asynchronous image re-encodes and exposes job status.
type ImageService interface {
	QueueReEncode(ctx context.Context, cmd QueueImageReEncodeCommand) (ImageJob, error)
	GetJob(ctx context.Context, jobID string) (ImageJob, error)
	GetImage(ctx context.Context, fileName string) (EncodedImage, error)
}

// QueueImageReEncodeCommand submits one uploaded file for re-encoding.
type QueueImageReEncodeCommand struct {
	ProductID   string
	ProductName string
	Data        []byte
}

// ExportService bundles the catalog and its images into the download archive.
type ExportService interface {
	WriteArchive(ctx context.Context, w io.Writer) error
}
