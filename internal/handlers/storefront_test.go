package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pawmart/api/internal/platform/requestctx"
	"github.com/pawmart/api/internal/services"
	"github.com/pawmart/api/internal/storefront"
)

func TestStorefrontHandlersGetViewSuccess(t *testing.T) {
	service := &stubStorefrontService{
		getViewFunc: func(ctx context.Context, query services.StorefrontViewQuery) (storefront.View, error) {
			if query.SessionID != "sess-1" {
				t.Fatalf("unexpected session id %q", query.SessionID)
			}
			if len(query.Capabilities) != 0 {
				t.Fatalf("expected no capabilities on the shopper surface, got %v", query.Capabilities)
			}
			return storefront.View{
				Status:      storefront.ViewStatusOK,
				Items:       []storefront.ItemView{{ID: "AP00002"}, {ID: "AP00001"}},
				Page:        1,
				TotalPages:  1,
				PageButtons: []int{1},
			}, nil
		},
	}

	handler := NewStorefrontHandlers(service)
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/storefront", nil), "sess-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected Cache-Control no-store, got %q", cc)
	}

	var resp storefrontViewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.View.Status != storefront.ViewStatusOK {
		t.Fatalf("expected status ok, got %q", resp.View.Status)
	}
	if len(resp.View.Items) != 2 || resp.View.Items[0].ID != "AP00002" {
		t.Fatalf("unexpected items %#v", resp.View.Items)
	}
}

func TestStorefrontHandlersGetViewMissingSession(t *testing.T) {
	handler := NewStorefrontHandlers(&stubStorefrontService{})
	req := httptest.NewRequest(http.MethodGet, "/storefront", nil)
	rr := httptest.NewRecorder()
	handler.getView(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestStorefrontHandlersGetViewServiceUnavailable(t *testing.T) {
	handler := NewStorefrontHandlers(nil)
	req := withSession(httptest.NewRequest(http.MethodGet, "/storefront", nil), "sess-1")
	rr := httptest.NewRecorder()
	handler.getView(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestStorefrontHandlersApplyCommandSuccess(t *testing.T) {
	var captured services.ApplyStorefrontCommand
	service := &stubStorefrontService{
		applyFunc: func(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error) {
			captured = cmd
			return storefront.View{Status: storefront.ViewStatusOK, Keyword: "cat", Page: 1}, nil
		},
	}

	handler := NewStorefrontHandlers(service)
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	body := `{"kind":"set_keyword","keyword":"cat"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/storefront/commands", strings.NewReader(body)), "sess-9")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.SessionID != "sess-9" {
		t.Fatalf("expected session sess-9, got %q", captured.SessionID)
	}
	if captured.Command.Kind != storefront.CommandSetKeyword || captured.Command.Keyword != "cat" {
		t.Fatalf("unexpected command %#v", captured.Command)
	}

	var resp storefrontViewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.View.Keyword != "cat" {
		t.Fatalf("expected keyword cat, got %q", resp.View.Keyword)
	}
}

func TestStorefrontHandlersApplyCommandPagination(t *testing.T) {
	var captured services.ApplyStorefrontCommand
	service := &stubStorefrontService{
		applyFunc: func(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error) {
			captured = cmd
			return storefront.View{Status: storefront.ViewStatusOK, Page: 2}, nil
		},
	}

	handler := NewStorefrontHandlers(service)
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	body := `{"kind":"set_page","page":2}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/storefront/commands", strings.NewReader(body)), "sess-2")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Command.Kind != storefront.CommandSetPage || captured.Command.Page != 2 {
		t.Fatalf("unexpected command %#v", captured.Command)
	}
}

func TestStorefrontHandlersApplyCommandRejectsBadBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing kind", body: `{"keyword":"cat"}`},
		{name: "unknown field", body: `{"kind":"set_keyword","verb":"x"}`},
		{name: "wrong type", body: `{"kind":"set_page","page":"two"}`},
		{name: "not json", body: `kind=set_page`},
	}

	handler := NewStorefrontHandlers(&stubStorefrontService{})
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodPost, "/storefront/commands", strings.NewReader(tc.body)), "sess-1")
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestStorefrontHandlersApplyCommandEmptyBody(t *testing.T) {
	handler := NewStorefrontHandlers(&stubStorefrontService{})
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodPost, "/storefront/commands", strings.NewReader("")), "sess-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestStorefrontHandlersApplyCommandUnknownKind(t *testing.T) {
	service := &stubStorefrontService{
		applyFunc: func(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error) {
			return storefront.View{}, services.ErrStorefrontInvalidInput
		},
	}

	handler := NewStorefrontHandlers(service)
	router := chi.NewRouter()
	router.Route("/storefront", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodPost, "/storefront/commands", strings.NewReader(`{"kind":"shuffle"}`)), "sess-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(requestctx.WithSessionID(r.Context(), sessionID))
}

type stubStorefrontService struct {
	getViewFunc func(ctx context.Context, query services.StorefrontViewQuery) (storefront.View, error)
	applyFunc   func(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error)
}

func (s *stubStorefrontService) GetView(ctx context.Context, query services.StorefrontViewQuery) (storefront.View, error) {
	if s.getViewFunc != nil {
		return s.getViewFunc(ctx, query)
	}
	return storefront.View{}, services.ErrStorefrontUnavailable
}

func (s *stubStorefrontService) ApplyCommand(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error) {
	if s.applyFunc != nil {
		return s.applyFunc(ctx, cmd)
	}
	return storefront.View{}, services.ErrStorefrontUnavailable
}

var _ services.StorefrontService = (*stubStorefrontService)(nil)
