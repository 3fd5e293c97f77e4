package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawmart/api/internal/platform/httpx"
	"github.com/pawmart/api/internal/services"
	"github.com/pawmart/api/internal/storefront"
)

const maxStorefrontBodySize = 16 * 1024

// StorefrontHandlers serves the shopper surface: the rendered catalog view and
// the browsing commands that mutate per-session state.
type StorefrontHandlers struct {
	service services.StorefrontService
}

// NewStorefrontHandlers constructs storefront handlers.
func NewStorefrontHandlers(service services.StorefrontService) *StorefrontHandlers {
	return &StorefrontHandlers{service: service}
}

// Routes registers the shopper storefront endpoints.
func (h *StorefrontHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getView)
	r.Post("/commands", h.applyCommand)
}

func (h *StorefrontHandlers) getView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "storefront service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}

	view, err := h.service.GetView(ctx, services.StorefrontViewQuery{SessionID: sessionID})
	if err != nil {
		writeStorefrontError(ctx, w, err)
		return
	}
	writeView(w, view)
}

func (h *StorefrontHandlers) applyCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "storefront service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxStorefrontBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd, err := parseStorefrontCommand(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.service.ApplyCommand(ctx, services.ApplyStorefrontCommand{SessionID: sessionID, Command: cmd})
	if err != nil {
		writeStorefrontError(ctx, w, err)
		return
	}
	writeView(w, view)
}

// parseStorefrontCommand decodes one browsing command. Only the field matching
// the command kind is read by the reducer; extra known fields are tolerated so
// clients can post their whole control state.
func parseStorefrontCommand(body []byte) (storefront.Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return storefront.Command{}, fmt.Errorf("invalid request body: %w", err)
	}

	cmd := storefront.Command{}
	for key, raw := range fields {
		switch key {
		case "kind":
			var kind string
			if err := json.Unmarshal(raw, &kind); err != nil {
				return storefront.Command{}, errors.New("kind must be a string")
			}
			cmd.Kind = storefront.CommandKind(kind)
		case "keyword":
			if err := json.Unmarshal(raw, &cmd.Keyword); err != nil {
				return storefront.Command{}, errors.New("keyword must be a string")
			}
		case "show_unavailable":
			if err := json.Unmarshal(raw, &cmd.ShowUnavailable); err != nil {
				return storefront.Command{}, errors.New("show_unavailable must be a boolean")
			}
		case "page":
			if err := json.Unmarshal(raw, &cmd.Page); err != nil {
				return storefront.Command{}, errors.New("page must be an integer")
			}
		default:
			return storefront.Command{}, fmt.Errorf("field %q is not recognized", key)
		}
	}
	if cmd.Kind == "" {
		return storefront.Command{}, errors.New("kind is required")
	}
	return cmd, nil
}

func writeStorefrontError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrStorefrontInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrStorefrontUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("storefront_unavailable", "storefront is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("storefront_error", err.Error(), http.StatusInternalServerError))
	}
}

// writeView renders a storefront view with the no-store caching the browsing
// surfaces share: views embed per-session cart state.
func writeView(w http.ResponseWriter, view storefront.View) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, storefrontViewResponse{View: view})
}

type storefrontViewResponse struct {
	View storefront.View `json:"view"`
}

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("request_too_large", "request body exceeds the allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
