package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawmart/api/internal/platform/httpx"
	"github.com/pawmart/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers serves the session cart and the outbound order link.
type CartHandlers struct {
	service   services.CartService
	formatter services.PriceFormatter
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(service services.CartService, formatter services.PriceFormatter) *CartHandlers {
	return &CartHandlers{service: service, formatter: formatter}
}

// Routes registers cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Put("/items/{productID}", h.setSelection)
	r.Get("/order-link", h.getOrderLink)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}

	cart, err := h.service.GetCart(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, r, cart)
}

func (h *CartHandlers) setSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	req, err := parseCartSelectionRequest(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.service.SetSelection(ctx, services.SetCartSelectionCommand{
		SessionID: sessionID,
		ProductID: productID,
		Selected:  req.Selected,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, r, cart)
}

func (h *CartHandlers) getOrderLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}

	link, err := h.service.BuildOrderLink(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, orderLinkResponse{
		Recipient: link.Recipient,
		Message:   link.Message,
		URL:       link.URL,
	})
}

func (h *CartHandlers) writeCart(w http.ResponseWriter, r *http.Request, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store")
	if !cart.UpdatedAt.IsZero() {
		etag := buildCartETag(cart)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", cart.UpdatedAt.UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", etag)
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: newCartPayload(cart, h.formatter)})
}

func buildCartETag(cart services.Cart) string {
	seed := fmt.Sprintf("%s:%d:%d", cart.SessionID, cart.UpdatedAt.UnixNano(), len(cart.Entries))
	sum := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("W/%q", hex.EncodeToString(sum[:8]))
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", err.Error(), http.StatusInternalServerError))
	}
}

func parseCartSelectionRequest(body []byte) (cartSelectionRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return cartSelectionRequest{}, fmt.Errorf("invalid request body: %w", err)
	}

	req := cartSelectionRequest{}
	seen := false
	for key, raw := range fields {
		switch key {
		case "selected":
			if err := json.Unmarshal(raw, &req.Selected); err != nil {
				return cartSelectionRequest{}, errors.New("selected must be a boolean")
			}
			seen = true
		default:
			return cartSelectionRequest{}, fmt.Errorf("field %q is not recognized", key)
		}
	}
	if !seen {
		return cartSelectionRequest{}, errors.New("selected is required")
	}
	return req, nil
}

type cartSelectionRequest struct {
	Selected bool `json:"selected"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	Count          int                `json:"count"`
	Total          float64            `json:"total"`
	TotalFormatted string             `json:"total_formatted"`
	Entries        []cartEntryPayload `json:"entries"`
	UpdatedAt      string             `json:"updated_at,omitempty"`
}

type cartEntryPayload struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Species        string  `json:"species"`
	Price          float64 `json:"price"`
	PriceFormatted string  `json:"price_formatted"`
	Available      bool    `json:"available"`
	Image          string  `json:"image,omitempty"`
	AddedAt        string  `json:"added_at,omitempty"`
}

type orderLinkResponse struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	URL       string `json:"url"`
}

func newCartPayload(cart services.Cart, formatter services.PriceFormatter) cartPayload {
	format := func(amount float64) string {
		if formatter == nil {
			return strconv.FormatFloat(amount, 'f', 2, 64)
		}
		return formatter.Format(amount)
	}

	payload := cartPayload{
		Count:     len(cart.Entries),
		Entries:   make([]cartEntryPayload, 0, len(cart.Entries)),
		UpdatedAt: formatTimestamp(cart.UpdatedAt),
	}
	for _, entry := range cart.Entries {
		payload.Total += entry.Price
		payload.Entries = append(payload.Entries, cartEntryPayload{
			ProductID:      entry.ProductID,
			Name:           entry.Name,
			Species:        entry.Species,
			Price:          entry.Price,
			PriceFormatted: format(entry.Price),
			Available:      entry.Available,
			Image:          entry.Image,
			AddedAt:        formatTimestamp(entry.AddedAt),
		})
	}
	payload.TotalFormatted = format(payload.Total)
	return payload
}
