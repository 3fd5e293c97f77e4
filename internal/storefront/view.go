package storefront

import (
	"fmt"

	domain "github.com/pawmart/api/internal/domain"
)

// Capability is an action a surface may offer on a catalog item. The shopper
// surface carries none; the admin surface carries edit and delete.
type Capability string

const (
	CapabilityEdit   Capability = "edit"
	CapabilityDelete Capability = "delete"
)

// View statuses.
const (
	ViewStatusOK         = "ok"
	ViewStatusEmpty      = "empty"
	ViewStatusLoadFailed = "load_failed"
)

// PriceFormatter renders an amount for display in the configured locale and
// currency.
type PriceFormatter func(amount float64) string

// ImageURLResolver maps a stored image reference to the URL it is served from.
// It receives the empty string when a product has no image and must return the
// placeholder URL in that case.
type ImageURLResolver func(image string) string

// ViewInput carries everything BuildView needs. Products is the full catalog
// snapshot in display order.
type ViewInput struct {
	Products        []domain.Product
	State           domain.StorefrontState
	Cart            domain.Cart
	CatalogFailed   bool
	Capabilities    []Capability
	FormatPrice     PriceFormatter
	ResolveImageURL ImageURLResolver
}

// View is the full set of render instructions for one storefront page.
type View struct {
	Status          string     `json:"status"`
	Keyword         string     `json:"keyword"`
	ShowUnavailable bool       `json:"show_unavailable"`
	Items           []ItemView `json:"items"`
	Page            int        `json:"page"`
	TotalPages      int        `json:"total_pages"`
	PageButtons     []int      `json:"page_buttons"`
	HasPrev         bool       `json:"has_prev"`
	HasNext         bool       `json:"has_next"`
	TotalMatches    int        `json:"total_matches"`
	Cart            CartView   `json:"cart"`
}

// ItemView is one product card.
type ItemView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Species        string   `json:"species"`
	Price          float64  `json:"price"`
	PriceFormatted string   `json:"price_formatted"`
	Available      bool     `json:"available"`
	ImageURL       string   `json:"image_url"`
	Selected       bool     `json:"selected"`
	Actions        []string `json:"actions"`
}

// CartView summarizes the session cart for the header panel.
type CartView struct {
	Count          int             `json:"count"`
	Total          float64         `json:"total"`
	TotalFormatted string          `json:"total_formatted"`
	Entries        []CartEntryView `json:"entries"`
}

// CartEntryView is one selected product inside the cart panel.
type CartEntryView struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Species        string  `json:"species"`
	Price          float64 `json:"price"`
	PriceFormatted string  `json:"price_formatted"`
	ImageURL       string  `json:"image_url"`
}

// BuildView derives the render instructions for one page from the catalog
// snapshot, the browsing state, and the session cart. It is a pure function:
// the same input always yields the same view, and the input is not mutated.
func BuildView(in ViewInput) View {
	formatPrice := in.FormatPrice
	if formatPrice == nil {
		formatPrice = func(amount float64) string { return fmt.Sprintf("%.2f", amount) }
	}
	resolveImage := in.ResolveImageURL
	if resolveImage == nil {
		resolveImage = func(image string) string { return image }
	}

	view := View{
		Status:          ViewStatusOK,
		Keyword:         in.State.Keyword,
		ShowUnavailable: in.State.ShowUnavailable,
		Items:           []ItemView{},
		PageButtons:     []int{},
		Cart:            buildCartView(in.Cart, formatPrice, resolveImage),
	}

	if in.CatalogFailed {
		view.Status = ViewStatusLoadFailed
		view.Page = 1
		return view
	}

	filtered := Filter(in.Products, in.State.Keyword, in.State.ShowUnavailable)
	totalPages := TotalPages(len(filtered))
	page := ClampPage(in.State.Page, totalPages)

	view.Page = page
	view.TotalPages = totalPages
	view.TotalMatches = len(filtered)
	view.PageButtons = PageWindow(page, totalPages)
	view.HasPrev = totalPages > 0 && page > 1
	view.HasNext = totalPages > 0 && page < totalPages

	if len(filtered) == 0 {
		view.Status = ViewStatusEmpty
		return view
	}

	selected := make(map[string]struct{}, len(in.Cart.Entries))
	for _, entry := range in.Cart.Entries {
		selected[entry.ProductID] = struct{}{}
	}

	actions := make([]string, 0, len(in.Capabilities))
	for _, capability := range in.Capabilities {
		actions = append(actions, string(capability))
	}

	for _, p := range PageSlice(filtered, page) {
		_, inCart := selected[p.ID]
		view.Items = append(view.Items, ItemView{
			ID:             p.ID,
			Name:           p.Name,
			Species:        p.Species,
			Price:          p.Price,
			PriceFormatted: formatPrice(p.Price),
			Available:      p.Available,
			ImageURL:       resolveImage(p.Image),
			Selected:       inCart,
			Actions:        actions,
		})
	}
	return view
}

func buildCartView(cart domain.Cart, formatPrice PriceFormatter, resolveImage ImageURLResolver) CartView {
	view := CartView{Entries: []CartEntryView{}}
	total := 0.0
	for _, entry := range cart.Entries {
		total += entry.Price
		view.Entries = append(view.Entries, CartEntryView{
			ProductID:      entry.ProductID,
			Name:           entry.Name,
			Species:        entry.Species,
			Price:          entry.Price,
			PriceFormatted: formatPrice(entry.Price),
			ImageURL:       resolveImage(entry.Image),
		})
	}
	view.Count = len(cart.Entries)
	view.Total = total
	view.TotalFormatted = formatPrice(total)
	return view
}
