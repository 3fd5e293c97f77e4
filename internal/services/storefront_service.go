package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
	"github.com/pawmart/api/internal/storefront"
)

var (
	// ErrStorefrontInvalidInput indicates the caller supplied invalid input.
	ErrStorefrontInvalidInput = errors.New("storefront service: invalid input")
	// ErrStorefrontUnavailable indicates the storefront cannot serve the request.
	ErrStorefrontUnavailable = errors.New("storefront service: unavailable")
)

// PriceFormatter renders an amount in the configured locale and currency.
type PriceFormatter interface {
	Format(amount float64) string
}

// StorefrontServiceDeps wires the repositories and rendering dependencies for
// the storefront view.
type StorefrontServiceDeps struct {
	Catalog             repositories.CatalogRepository
	Carts               repositories.CartRepository
	Sessions            repositories.SessionRepository
	Formatter           PriceFormatter
	ImagesBaseURL       string
	PlaceholderImageURL string
	Clock               func() time.Time
	Logger              func(ctx context.Context, event string, fields map[string]any)
}

type storefrontService struct {
	catalog     repositories.CatalogRepository
	carts       repositories.CartRepository
	sessions    repositories.SessionRepository
	formatter   PriceFormatter
	imagesBase  string
	placeholder string
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewStorefrontService constructs a StorefrontService enforcing dependency validation.
func NewStorefrontService(deps StorefrontServiceDeps) (StorefrontService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("storefront service: catalog repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("storefront service: cart repository is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("storefront service: session repository is required")
	}
	if deps.Formatter == nil {
		return nil, errors.New("storefront service: price formatter is required")
	}
	if strings.TrimSpace(deps.PlaceholderImageURL) == "" {
		return nil, errors.New("storefront service: placeholder image url is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &storefrontService{
		catalog:     deps.Catalog,
		carts:       deps.Carts,
		sessions:    deps.Sessions,
		formatter:   deps.Formatter,
		imagesBase:  strings.TrimRight(strings.TrimSpace(deps.ImagesBaseURL), "/"),
		placeholder: strings.TrimSpace(deps.PlaceholderImageURL),
		now:         func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// GetView renders the storefront for the session's current browsing state.
func (s *storefrontService) GetView(ctx context.Context, query StorefrontViewQuery) (storefront.View, error) {
	sessionID := strings.TrimSpace(query.SessionID)
	if sessionID == "" {
		return storefront.View{}, ErrStorefrontInvalidInput
	}

	state := s.loadState(ctx, sessionID)
	return s.render(ctx, sessionID, state, query.Capabilities)
}

// ApplyCommand reduces one browsing command into the session state, persists
// the result, and renders the view it produces.
func (s *storefrontService) ApplyCommand(ctx context.Context, cmd ApplyStorefrontCommand) (storefront.View, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return storefront.View{}, ErrStorefrontInvalidInput
	}

	state := s.loadState(ctx, sessionID)
	next, err := storefront.Reduce(state, cmd.Command)
	if err != nil {
		return storefront.View{}, ErrStorefrontInvalidInput
	}

	view, err := s.render(ctx, sessionID, next, cmd.Capabilities)
	if err != nil {
		return storefront.View{}, err
	}

	// The render pass clamps the page against the filtered result, so persist
	// the clamped cursor rather than the raw command outcome.
	next.Page = view.Page
	if err := s.sessions.SaveState(ctx, sessionID, next, s.now()); err != nil {
		return storefront.View{}, ErrStorefrontUnavailable
	}
	return view, nil
}

func (s *storefrontService) render(ctx context.Context, sessionID string, state domain.StorefrontState, capabilities []storefront.Capability) (storefront.View, error) {
	info, err := s.catalog.Info(ctx)
	if err != nil {
		return storefront.View{}, ErrStorefrontUnavailable
	}

	var products []domain.Product
	catalogFailed := info.Status != domain.CatalogStatusReady
	if !catalogFailed {
		products, err = s.catalog.List(ctx)
		if err != nil {
			return storefront.View{}, ErrStorefrontUnavailable
		}
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		if !isRepoNotFound(err) {
			return storefront.View{}, ErrStorefrontUnavailable
		}
		cart = domain.Cart{SessionID: sessionID, Entries: []domain.CartEntry{}}
	}

	return storefront.BuildView(storefront.ViewInput{
		Products:        products,
		State:           state,
		Cart:            cart,
		CatalogFailed:   catalogFailed,
		Capabilities:    capabilities,
		FormatPrice:     s.formatter.Format,
		ResolveImageURL: s.resolveImageURL,
	}), nil
}

func (s *storefrontService) loadState(ctx context.Context, sessionID string) domain.StorefrontState {
	state, err := s.sessions.GetState(ctx, sessionID)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, "storefront.state_load_failed", map[string]any{
				"error": err.Error(),
			})
		}
		return domain.DefaultStorefrontState()
	}
	return state
}

func (s *storefrontService) resolveImageURL(image string) string {
	return resolveImageRef(s.imagesBase, s.placeholder, image)
}
