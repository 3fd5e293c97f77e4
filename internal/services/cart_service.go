package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the product to select does not exist in the catalog.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartReconcilePolicy controls what happens to cart entries whose product has
// disappeared or become unavailable since they were added.
type CartReconcilePolicy string

const (
	// CartReconcileKeep keeps stale entries; the cart is a pure snapshot.
	CartReconcileKeep CartReconcilePolicy = "keep"
	// CartReconcileDropUnavailable drops entries whose product is missing or
	// no longer available.
	CartReconcileDropUnavailable CartReconcilePolicy = "drop-unavailable"
)

// CartServiceDeps wires the repositories and formatting dependencies for cart operations.
type CartServiceDeps struct {
	Repository          repositories.CartRepository
	Catalog             repositories.CatalogRepository
	Formatter           PriceFormatter
	ReconcilePolicy     CartReconcilePolicy
	ImagesBaseURL       string
	PlaceholderImageURL string
	OrderLinkBase       string
	OrderRecipient      string
	Clock               func() time.Time
	Logger              func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	repo        repositories.CartRepository
	catalog     repositories.CatalogRepository
	formatter   PriceFormatter
	policy      CartReconcilePolicy
	imagesBase  string
	placeholder string
	linkBase    string
	recipient   string
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog repository is required")
	}
	if deps.Formatter == nil {
		return nil, errors.New("cart service: price formatter is required")
	}
	if strings.TrimSpace(deps.OrderLinkBase) == "" {
		return nil, errors.New("cart service: order link base is required")
	}
	if strings.TrimSpace(deps.OrderRecipient) == "" {
		return nil, errors.New("cart service: order recipient is required")
	}

	policy := deps.ReconcilePolicy
	if policy == "" {
		policy = CartReconcileKeep
	}
	if policy != CartReconcileKeep && policy != CartReconcileDropUnavailable {
		return nil, fmt.Errorf("cart service: unknown reconcile policy %q", policy)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:        deps.Repository,
		catalog:     deps.Catalog,
		formatter:   deps.Formatter,
		policy:      policy,
		imagesBase:  strings.TrimRight(strings.TrimSpace(deps.ImagesBaseURL), "/"),
		placeholder: strings.TrimSpace(deps.PlaceholderImageURL),
		linkBase:    strings.TrimRight(strings.TrimSpace(deps.OrderLinkBase), "/"),
		recipient:   strings.TrimSpace(deps.OrderRecipient),
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// GetCart returns the session cart, reconciled against the current catalog
// when the drop-unavailable policy is active. A session without a cart gets an
// empty one.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		if isRepoNotFound(err) {
			return s.newCart(sessionID), nil
		}
		return Cart{}, ErrCartUnavailable
	}

	cart, changed := s.reconcile(ctx, cart)
	if changed {
		cart.UpdatedAt = s.now()
		saved, err := s.repo.UpsertCart(ctx, cart)
		if err != nil {
			return Cart{}, ErrCartUnavailable
		}
		return saved, nil
	}
	return cart, nil
}

// SetSelection toggles one product in or out of the cart. Adding stores a
// snapshot copy of the product; re-adding a present product and removing an
// absent one are no-ops, so the operation is idempotent.
func (s *cartService) SetSelection(ctx context.Context, cmd SetCartSelectionCommand) (Cart, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, ErrCartUnavailable
		}
		cart = s.newCart(sessionID)
	}

	cart, changed := s.reconcile(ctx, cart)

	idx := indexOfCartEntry(cart.Entries, productID)
	if cmd.Selected {
		if idx < 0 {
			product, err := s.catalog.Get(ctx, productID)
			if err != nil {
				if isRepoNotFound(err) {
					return Cart{}, ErrCartNotFound
				}
				return Cart{}, ErrCartUnavailable
			}
			if !product.Available {
				return Cart{}, fmt.Errorf("%w: product %s is unavailable", ErrCartInvalidInput, productID)
			}
			cart.Entries = append(cart.Entries, domain.EntryFromProduct(product, s.now()))
			changed = true
		}
	} else {
		if idx >= 0 {
			cart.Entries = append(cart.Entries[:idx], cart.Entries[idx+1:]...)
			changed = true
		}
	}

	if !changed {
		return cart, nil
	}

	cart.UpdatedAt = s.now()
	saved, err := s.repo.UpsertCart(ctx, cart)
	if err != nil {
		return Cart{}, ErrCartUnavailable
	}
	s.logger(ctx, "cart.selection_changed", map[string]any{
		"product_id": productID,
		"selected":   cmd.Selected,
		"count":      len(saved.Entries),
	})
	return saved, nil
}

// BuildOrderLink renders the order message for the cart and appends it,
// URL-escaped, to the messaging deep link.
func (s *cartService) BuildOrderLink(ctx context.Context, sessionID string) (OrderLink, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return OrderLink{}, err
	}
	if len(cart.Entries) == 0 {
		return OrderLink{}, fmt.Errorf("%w: cart is empty", ErrCartInvalidInput)
	}

	message := s.buildOrderMessage(cart)
	return OrderLink{
		Recipient: s.recipient,
		Message:   message,
		URL:       s.linkBase + "/" + s.recipient + "?text=" + url.QueryEscape(message),
	}, nil
}

// buildOrderMessage renders the fixed order template: one line per entry with
// identifier, species, name, formatted price, and image URL, then the total.
func (s *cartService) buildOrderMessage(cart Cart) string {
	var b strings.Builder
	b.WriteString("Hello! I would like to order:\n")
	total := 0.0
	for i, entry := range cart.Entries {
		total += entry.Price
		fmt.Fprintf(&b, "%d. %s | %s | %s | %s | %s\n",
			i+1,
			entry.ProductID,
			entry.Species,
			entry.Name,
			s.formatter.Format(entry.Price),
			resolveImageRef(s.imagesBase, s.placeholder, entry.Image),
		)
	}
	fmt.Fprintf(&b, "Total: %s", s.formatter.Format(total))
	return b.String()
}

func (s *cartService) newCart(sessionID string) domain.Cart {
	return domain.Cart{
		SessionID: sessionID,
		Entries:   []domain.CartEntry{},
		UpdatedAt: s.now(),
	}
}

// reconcile applies the configured policy to entries whose product has been
// removed or marked unavailable since they were added.
func (s *cartService) reconcile(ctx context.Context, cart domain.Cart) (domain.Cart, bool) {
	if s.policy != CartReconcileDropUnavailable || len(cart.Entries) == 0 {
		return cart, false
	}

	kept := make([]domain.CartEntry, 0, len(cart.Entries))
	for _, entry := range cart.Entries {
		product, err := s.catalog.Get(ctx, entry.ProductID)
		if err != nil {
			if isRepoNotFound(err) {
				continue
			}
			kept = append(kept, entry)
			continue
		}
		if !product.Available {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == len(cart.Entries) {
		return cart, false
	}
	cart.Entries = kept
	return cart, true
}

func indexOfCartEntry(entries []domain.CartEntry, productID string) int {
	for i := range entries {
		if entries[i].ProductID == productID {
			return i
		}
	}
	return -1
}
