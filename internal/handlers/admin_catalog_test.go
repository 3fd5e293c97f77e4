package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/services"
	"github.com/pawmart/api/internal/storefront"
)

func newAdminTestHandlers(t *testing.T, catalog *stubAdminCatalogService, opts ...func(*AdminCatalogHandlers)) (*AdminCatalogHandlers, chi.Router) {
	t.Helper()
	if catalog == nil {
		catalog = &stubAdminCatalogService{}
	}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, catalog, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{})
	for _, opt := range opts {
		opt(handler)
	}
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)
	return handler, router
}

func TestAdminCatalogHandlersStorefrontCapabilities(t *testing.T) {
	var captured services.StorefrontViewQuery
	views := &stubStorefrontService{
		getViewFunc: func(ctx context.Context, query services.StorefrontViewQuery) (storefront.View, error) {
			captured = query
			return storefront.View{Status: storefront.ViewStatusOK}, nil
		},
	}
	handler := NewAdminCatalogHandlers(views, &stubAdminCatalogService{}, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/storefront", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(captured.Capabilities) != 2 {
		t.Fatalf("expected edit and delete capabilities, got %v", captured.Capabilities)
	}
	if captured.Capabilities[0] != storefront.CapabilityEdit || captured.Capabilities[1] != storefront.CapabilityDelete {
		t.Fatalf("unexpected capabilities %v", captured.Capabilities)
	}
}

func TestAdminCatalogHandlersApplyCommandCarriesCapabilities(t *testing.T) {
	var captured services.ApplyStorefrontCommand
	views := &stubStorefrontService{
		applyFunc: func(ctx context.Context, cmd services.ApplyStorefrontCommand) (storefront.View, error) {
			captured = cmd
			return storefront.View{Status: storefront.ViewStatusOK}, nil
		},
	}
	handler := NewAdminCatalogHandlers(views, &stubAdminCatalogService{}, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	body := strings.NewReader(`{"kind":"set_show_unavailable","show_unavailable":true}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/storefront/commands", body), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Command.Kind != storefront.CommandSetShowUnavailable || !captured.Command.ShowUnavailable {
		t.Fatalf("unexpected command %#v", captured.Command)
	}
	if len(captured.Capabilities) != 2 {
		t.Fatalf("expected admin capabilities on command, got %v", captured.Capabilities)
	}
}

func TestAdminCatalogHandlersListProducts(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	catalog := &stubAdminCatalogService{
		listFunc: func(ctx context.Context) ([]services.Product, services.CatalogInfo, error) {
			return []services.Product{
					{ID: "AP00002", Name: "Rex", Species: "Dog", Price: 49.5, Available: true, CreatedAt: now},
					{ID: "AP00001", Name: "Luna", Species: "Cat", Price: 100.25, Available: false, Image: "ap00001-luna.jpg", CreatedAt: now.Add(-time.Hour)},
				}, services.CatalogInfo{Status: domain.CatalogStatusReady, ProductCount: 2, LoadedAt: now}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/products", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp adminProductListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Products) != 2 || resp.Products[0].ID != "AP00002" {
		t.Fatalf("unexpected products %#v", resp.Products)
	}
	if resp.Catalog.Status != domain.CatalogStatusReady || resp.Catalog.ProductCount != 2 {
		t.Fatalf("unexpected catalog info %#v", resp.Catalog)
	}
	if resp.Products[1].Image != "ap00001-luna.jpg" {
		t.Fatalf("expected image reference, got %q", resp.Products[1].Image)
	}
}

func TestAdminCatalogHandlersCreateProductJSON(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	var captured services.CreateProductCommand
	catalog := &stubAdminCatalogService{
		createFunc: func(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error) {
			captured = cmd
			return services.ProductMutationResult{
				Product: services.Product{ID: "AP00004", Name: cmd.Name, Species: cmd.Species, Price: cmd.Price, Available: cmd.Available, CreatedAt: now},
			}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	body := strings.NewReader(`{"name":"Luna","species":"Cat","price":100.25,"available":true}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", body), "admin-1")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if captured.Name != "Luna" || captured.Species != "Cat" || captured.Price != 100.25 || !captured.Available {
		t.Fatalf("unexpected command %#v", captured)
	}
	if captured.Image != nil {
		t.Fatalf("expected no image bytes for a JSON mutation")
	}

	var resp productMutationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Product.ID != "AP00004" {
		t.Fatalf("expected product AP00004, got %q", resp.Product.ID)
	}
	if resp.ImageJob != nil {
		t.Fatalf("expected no image job, got %#v", resp.ImageJob)
	}
}

func TestAdminCatalogHandlersCreateProductMultipart(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x01, 0x02}
	var captured services.CreateProductCommand
	catalog := &stubAdminCatalogService{
		createFunc: func(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error) {
			captured = cmd
			return services.ProductMutationResult{
				Product: services.Product{ID: "AP00004", Name: cmd.Name, CreatedAt: now},
				ImageJob: &services.ImageJob{
					ID:        "job-1",
					ProductID: "AP00004",
					Status:    domain.ImageJobStatusQueued,
					CreatedAt: now,
					UpdatedAt: now,
				},
			}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("name", "Luna")
	_ = writer.WriteField("species", "Cat")
	_ = writer.WriteField("price", "100.25")
	_ = writer.WriteField("available", "true")
	part, err := writer.CreateFormFile("image", "luna.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		t.Fatalf("failed to write image part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", &body), "admin-1")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Luna" || captured.Price != 100.25 || !captured.Available {
		t.Fatalf("unexpected command %#v", captured)
	}
	if !bytes.Equal(captured.Image, imageBytes) {
		t.Fatalf("expected image bytes to reach the service")
	}

	var resp productMutationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ImageJob == nil || resp.ImageJob.ID != "job-1" || resp.ImageJob.Status != string(domain.ImageJobStatusQueued) {
		t.Fatalf("expected queued image job, got %#v", resp.ImageJob)
	}
}

func TestAdminCatalogHandlersCreateProductUploadTooLarge(t *testing.T) {
	catalog := &stubAdminCatalogService{}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, catalog, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{MaxUploadBytes: 8})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("name", "Luna")
	_ = writer.WriteField("species", "Cat")
	_ = writer.WriteField("price", "1")
	part, _ := writer.CreateFormFile("image", "luna.png")
	_, _ = part.Write(bytes.Repeat([]byte{0x01}, 100))
	_ = writer.Close()

	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", &body), "admin-1")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersCreateProductRejectsBadForms(t *testing.T) {
	cases := []struct {
		name  string
		price string
	}{
		{name: "missing price", price: ""},
		{name: "non numeric price", price: "ten"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, router := newAdminTestHandlers(t, &stubAdminCatalogService{})

			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			_ = writer.WriteField("name", "Luna")
			_ = writer.WriteField("species", "Cat")
			_ = writer.WriteField("price", tc.price)
			_ = writer.Close()

			req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", &body), "admin-1")
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestAdminCatalogHandlersCreateProductValidationError(t *testing.T) {
	catalog := &stubAdminCatalogService{
		createFunc: func(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error) {
			return services.ProductMutationResult{}, services.ErrAdminCatalogInvalidInput
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	body := strings.NewReader(`{"name":"","species":"Cat","price":1,"available":true}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", body), "admin-1")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersUpdateProduct(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	var captured services.UpdateProductCommand
	catalog := &stubAdminCatalogService{
		updateFunc: func(ctx context.Context, cmd services.UpdateProductCommand) (services.ProductMutationResult, error) {
			captured = cmd
			return services.ProductMutationResult{
				Product: services.Product{ID: cmd.ProductID, Name: cmd.Name, Species: cmd.Species, Price: cmd.Price, Available: cmd.Available, CreatedAt: now},
			}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	body := strings.NewReader(`{"name":"Rex II","species":"Dog","price":59.5,"available":false}`)
	req := withSession(httptest.NewRequest(http.MethodPut, "/admin/products/AP00002", body), "admin-1")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ProductID != "AP00002" || captured.Name != "Rex II" || captured.Price != 59.5 {
		t.Fatalf("unexpected command %#v", captured)
	}
}

func TestAdminCatalogHandlersUpdateProductNotFound(t *testing.T) {
	catalog := &stubAdminCatalogService{
		updateFunc: func(ctx context.Context, cmd services.UpdateProductCommand) (services.ProductMutationResult, error) {
			return services.ProductMutationResult{}, services.ErrAdminCatalogNotFound
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	body := strings.NewReader(`{"name":"Ghost","species":"Cat","price":1,"available":true}`)
	req := withSession(httptest.NewRequest(http.MethodPut, "/admin/products/AP09999", body), "admin-1")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersGetProduct(t *testing.T) {
	catalog := &stubAdminCatalogService{
		getFunc: func(ctx context.Context, productID string) (services.Product, error) {
			if productID != "AP00001" {
				t.Fatalf("unexpected product id %q", productID)
			}
			return services.Product{ID: "AP00001", Name: "Luna", Species: "Cat", Price: 100.25}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/products/AP00001", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp adminProductResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Product.ID != "AP00001" || resp.Product.Name != "Luna" {
		t.Fatalf("unexpected product %#v", resp.Product)
	}
}

func TestAdminCatalogHandlersDeleteProduct(t *testing.T) {
	var captured string
	catalog := &stubAdminCatalogService{
		deleteFunc: func(ctx context.Context, productID string) error {
			captured = productID
			return nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/admin/products/AP00002", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if captured != "AP00002" {
		t.Fatalf("expected delete for AP00002, got %q", captured)
	}
}

func TestAdminCatalogHandlersPendingChanges(t *testing.T) {
	catalog := &stubAdminCatalogService{
		pendingFunc: func(ctx context.Context) ([]string, error) {
			return []string{"created AP00004", "updated AP00002"}, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/changes", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp pendingChangesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %#v", resp)
	}
}

func TestAdminCatalogHandlersReload(t *testing.T) {
	catalog := &stubAdminCatalogService{
		reloadFunc: func(ctx context.Context) (int, error) {
			return 7, nil
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp catalogReloadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Products != 7 || resp.Status != "reloaded" {
		t.Fatalf("unexpected reload response %#v", resp)
	}
}

func TestAdminCatalogHandlersReloadFailure(t *testing.T) {
	catalog := &stubAdminCatalogService{
		reloadFunc: func(ctx context.Context) (int, error) {
			return 0, services.ErrCatalogLoadFailed
		},
	}
	_, router := newAdminTestHandlers(t, catalog)

	req := withSession(httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "catalog_load_failed" {
		t.Fatalf("expected catalog_load_failed error, got %v", body["error"])
	}
}

func TestAdminCatalogHandlersExport(t *testing.T) {
	archive := []byte("PK\x03\x04fakezip")
	export := &stubExportService{
		writeFunc: func(ctx context.Context, w io.Writer) error {
			_, err := w.Write(archive)
			return err
		},
	}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, &stubAdminCatalogService{}, &stubImageService{}, export, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/catalog/export", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("expected content-type application/zip, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, services.ExportArchiveName) {
		t.Fatalf("expected attachment named %s, got %q", services.ExportArchiveName, cd)
	}
	if !bytes.Equal(rr.Body.Bytes(), archive) {
		t.Fatalf("expected archive bytes to round-trip")
	}
}

func TestAdminCatalogHandlersExportNotLoaded(t *testing.T) {
	export := &stubExportService{
		writeFunc: func(ctx context.Context, w io.Writer) error {
			return services.ErrExportNotLoaded
		},
	}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, &stubAdminCatalogService{}, &stubImageService{}, export, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/catalog/export", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersGetImageJob(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	completed := now.Add(time.Second)
	images := &stubImageService{
		jobFunc: func(ctx context.Context, jobID string) (services.ImageJob, error) {
			if jobID != "job-1" {
				t.Fatalf("unexpected job id %q", jobID)
			}
			return services.ImageJob{
				ID:          "job-1",
				ProductID:   "AP00004",
				FileName:    "ap00004-luna.jpg",
				Status:      domain.ImageJobStatusSucceeded,
				CreatedAt:   now,
				UpdatedAt:   completed,
				CompletedAt: &completed,
			}, nil
		},
	}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, &stubAdminCatalogService{}, images, &stubExportService{}, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/images/jobs/job-1", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp imageJobResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Job.ID != "job-1" || resp.Job.Status != string(domain.ImageJobStatusSucceeded) {
		t.Fatalf("unexpected job %#v", resp.Job)
	}
	if resp.Job.CompletedAt == "" || resp.Job.FileName != "ap00004-luna.jpg" {
		t.Fatalf("expected completion details, got %#v", resp.Job)
	}
}

func TestAdminCatalogHandlersGetImageJobNotFound(t *testing.T) {
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, &stubAdminCatalogService{}, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/images/jobs/missing", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminCatalogHandlersMutationRateLimited(t *testing.T) {
	catalog := &stubAdminCatalogService{
		createFunc: func(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error) {
			return services.ProductMutationResult{Product: services.Product{ID: "AP00004"}}, nil
		},
	}
	handler := NewAdminCatalogHandlers(&stubStorefrontService{}, catalog, &stubImageService{}, &stubExportService{}, AdminCatalogConfig{
		MutationLimit:  1,
		MutationWindow: time.Minute,
	})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	send := func() *httptest.ResponseRecorder {
		body := strings.NewReader(`{"name":"Luna","species":"Cat","price":1,"available":true}`)
		req := withSession(httptest.NewRequest(http.MethodPost, "/admin/products", body), "admin-1")
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	if first := send(); first.Code != http.StatusCreated {
		t.Fatalf("expected first mutation to pass, got %d", first.Code)
	}
	if second := send(); second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second mutation to be limited, got %d", second.Code)
	}
}

type stubAdminCatalogService struct {
	listFunc    func(ctx context.Context) ([]services.Product, services.CatalogInfo, error)
	getFunc     func(ctx context.Context, productID string) (services.Product, error)
	createFunc  func(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error)
	updateFunc  func(ctx context.Context, cmd services.UpdateProductCommand) (services.ProductMutationResult, error)
	deleteFunc  func(ctx context.Context, productID string) error
	pendingFunc func(ctx context.Context) ([]string, error)
	reloadFunc  func(ctx context.Context) (int, error)
}

func (s *stubAdminCatalogService) ListProducts(ctx context.Context) ([]services.Product, services.CatalogInfo, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	return nil, services.CatalogInfo{}, services.ErrAdminCatalogUnavailable
}

func (s *stubAdminCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, productID)
	}
	return services.Product{}, services.ErrAdminCatalogNotFound
}

func (s *stubAdminCatalogService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (services.ProductMutationResult, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.ProductMutationResult{}, services.ErrAdminCatalogUnavailable
}

func (s *stubAdminCatalogService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (services.ProductMutationResult, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return services.ProductMutationResult{}, services.ErrAdminCatalogUnavailable
}

func (s *stubAdminCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, productID)
	}
	return services.ErrAdminCatalogUnavailable
}

func (s *stubAdminCatalogService) PendingChanges(ctx context.Context) ([]string, error) {
	if s.pendingFunc != nil {
		return s.pendingFunc(ctx)
	}
	return nil, nil
}

func (s *stubAdminCatalogService) Reload(ctx context.Context) (int, error) {
	if s.reloadFunc != nil {
		return s.reloadFunc(ctx)
	}
	return 0, services.ErrAdminCatalogUnavailable
}

var _ services.AdminCatalogService = (*stubAdminCatalogService)(nil)

type stubExportService struct {
	writeFunc func(ctx context.Context, w io.Writer) error
}

func (s *stubExportService) WriteArchive(ctx context.Context, w io.Writer) error {
	if s.writeFunc != nil {
		return s.writeFunc(ctx, w)
	}
	return services.ErrExportUnavailable
}

var _ services.ExportService = (*stubExportService)(nil)
