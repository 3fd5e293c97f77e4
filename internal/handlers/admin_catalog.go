package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawmart/api/internal/platform/httpx"
	"github.com/pawmart/api/internal/repositories"
	"github.com/pawmart/api/internal/services"
	"github.com/pawmart/api/internal/storefront"
)

const (
	maxAdminBodySize    = 64 * 1024
	multipartFormMemory = 4 << 20

	defaultMaxUploadBytes      = 8 << 20
	defaultAdminMutationLimit  = 30
	defaultAdminMutationWindow = time.Minute
)

// adminCapabilities marks every catalog card with the management actions the
// admin surface offers. The shopper surface carries none.
var adminCapabilities = []storefront.Capability{storefront.CapabilityEdit, storefront.CapabilityDelete}

// AdminCatalogHandlers exposes the catalog management surface: the admin view
// of the storefront, product CRUD, pending changes, reloads, the export
// archive, and image job lookups.
type AdminCatalogHandlers struct {
	views          services.StorefrontService
	catalog        services.AdminCatalogService
	images         services.ImageService
	export         services.ExportService
	limiter        rateLimiter
	maxUploadBytes int64
}

// AdminCatalogConfig carries the tunables for the admin surface.
type AdminCatalogConfig struct {
	MaxUploadBytes int64
	MutationLimit  int
	MutationWindow time.Duration
	Clock          func() time.Time
}

// NewAdminCatalogHandlers constructs admin catalog handlers.
func NewAdminCatalogHandlers(views services.StorefrontService, catalog services.AdminCatalogService, images services.ImageService, export services.ExportService, cfg AdminCatalogConfig) *AdminCatalogHandlers {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.MutationLimit <= 0 {
		cfg.MutationLimit = defaultAdminMutationLimit
	}
	if cfg.MutationWindow <= 0 {
		cfg.MutationWindow = defaultAdminMutationWindow
	}
	return &AdminCatalogHandlers{
		views:          views,
		catalog:        catalog,
		images:         images,
		export:         export,
		limiter:        newMutationLimiter(cfg.MutationLimit, cfg.MutationWindow, cfg.Clock),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Routes registers admin endpoints.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/storefront", h.getStorefront)
	r.Post("/storefront/commands", h.applyStorefrontCommand)
	r.Route("/products", func(rt chi.Router) {
		rt.Get("/", h.listProducts)
		rt.Post("/", h.createProduct)
		rt.Get("/{productID}", h.getProduct)
		rt.Put("/{productID}", h.updateProduct)
		rt.Delete("/{productID}", h.deleteProduct)
	})
	r.Get("/changes", h.listPendingChanges)
	r.Route("/catalog", func(rt chi.Router) {
		rt.Post("/reload", h.reloadCatalog)
		rt.Get("/export", h.exportCatalog)
	})
	r.Get("/images/jobs/{jobID}", h.getImageJob)
}

func (h *AdminCatalogHandlers) getStorefront(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.views == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "storefront service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "session cookie is required", http.StatusBadRequest))
		return
	}

	view, err := h.views.GetView(ctx, services.StorefrontViewQuery{SessionID: sessionID, Capabilities: adminCapabilities})
	if err != nil {
		writeStorefrontError(ctx, w, err)
		return
	}
	writeView(w, view)
}

func (h *AdminCatalogHandlers) applyStorefrontCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.views == nil {
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

	view, err := h.views.ApplyCommand(ctx, services.ApplyStorefrontCommand{
		SessionID:    sessionID,
		Command:      cmd,
		Capabilities: adminCapabilities,
	})
	if err != nil {
		writeStorefrontError(ctx, w, err)
		return
	}
	writeView(w, view)
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	products, info, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}

	payloads := make([]adminProductPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, newAdminProductPayload(product))
	}
	writeJSON(w, http.StatusOK, adminProductListResponse{
		Products: payloads,
		Catalog:  newCatalogInfoPayload(info),
	})
}

func (h *AdminCatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

func (h *AdminCatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "productID"))
}

func (h *AdminCatalogHandlers) saveProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allowMutation(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many catalog mutations, retry later", http.StatusTooManyRequests))
		return
	}

	form, err := decodeAdminProductForm(r, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("request_too_large", fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes), http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var result services.ProductMutationResult
	if strings.TrimSpace(productID) == "" {
		result, err = h.catalog.CreateProduct(ctx, services.CreateProductCommand{
			Name:      form.Name,
			Species:   form.Species,
			Price:     form.Price,
			Available: form.Available,
			Image:     form.Image,
		})
	} else {
		result, err = h.catalog.UpdateProduct(ctx, services.UpdateProductCommand{
			ProductID: strings.TrimSpace(productID),
			Name:      form.Name,
			Species:   form.Species,
			Price:     form.Price,
			Available: form.Available,
			Image:     form.Image,
		})
	}
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, newProductMutationResponse(result))
}

func (h *AdminCatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminProductResponse{Product: newAdminProductPayload(product)})
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allowMutation(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many catalog mutations, retry later", http.StatusTooManyRequests))
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) listPendingChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	changes, err := h.catalog.PendingChanges(ctx)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	if changes == nil {
		changes = []string{}
	}
	writeJSON(w, http.StatusOK, pendingChangesResponse{Changes: changes, Count: len(changes)})
}

func (h *AdminCatalogHandlers) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	count, err := h.catalog.Reload(ctx)
	if err != nil {
		if errors.Is(err, services.ErrCatalogLoadFailed) {
			httpx.WriteError(ctx, w, httpx.NewError("catalog_load_failed", err.Error(), http.StatusInternalServerError))
			return
		}
		writeAdminCatalogError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogReloadResponse{Status: "reloaded", Products: count})
}

func (h *AdminCatalogHandlers) exportCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.export == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "export service unavailable", http.StatusServiceUnavailable))
		return
	}

	// The archive is buffered so load failures surface as JSON errors instead
	// of a truncated download.
	var buf bytes.Buffer
	if err := h.export.WriteArchive(ctx, &buf); err != nil {
		switch {
		case errors.Is(err, services.ErrExportNotLoaded):
			httpx.WriteError(ctx, w, httpx.NewError("catalog_not_loaded", err.Error(), http.StatusConflict))
		case errors.Is(err, services.ErrExportUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "export is unavailable", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("export_error", err.Error(), http.StatusInternalServerError))
		}
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.ExportArchiveName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AdminCatalogHandlers) getImageJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}
	jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if jobID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "job id is required", http.StatusBadRequest))
		return
	}

	job, err := h.images.GetJob(ctx, jobID)
	if err != nil {
		writeImageError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageJobResponse{Job: newImageJobPayload(job)})
}

func (h *AdminCatalogHandlers) allowMutation(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(sessionIDFromRequest(r))
}

// adminProductForm holds the decoded mutation fields. Image is nil when no
// upload accompanied the request.
type adminProductForm struct {
	Name      string
	Species   string
	Price     float64
	Available bool
	Image     []byte
}

// decodeAdminProductForm accepts either a multipart form (the upload path) or
// a plain JSON body for mutations without an image.
func decodeAdminProductForm(r *http.Request, maxUploadBytes int64) (adminProductForm, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		return decodeMultipartProductForm(r, maxUploadBytes)
	}
	return decodeJSONProductForm(r)
}

func decodeMultipartProductForm(r *http.Request, maxUploadBytes int64) (adminProductForm, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes+maxAdminBodySize)
	if err := r.ParseMultipartForm(multipartFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return adminProductForm{}, errBodyTooLarge
		}
		return adminProductForm{}, fmt.Errorf("parse multipart form: %w", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := adminProductForm{
		Name:    r.FormValue("name"),
		Species: r.FormValue("species"),
	}
	price, err := parsePriceField(r.FormValue("price"))
	if err != nil {
		return adminProductForm{}, err
	}
	form.Price = price
	available, err := parseAvailableField(r.FormValue("available"))
	if err != nil {
		return adminProductForm{}, err
	}
	form.Available = available

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		if maxUploadBytes > 0 && header.Size > maxUploadBytes {
			return adminProductForm{}, errBodyTooLarge
		}
		data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if readErr != nil {
			return adminProductForm{}, fmt.Errorf("read image upload: %w", readErr)
		}
		if maxUploadBytes > 0 && int64(len(data)) > maxUploadBytes {
			return adminProductForm{}, errBodyTooLarge
		}
		form.Image = data
	case errors.Is(err, http.ErrMissingFile):
	default:
		return adminProductForm{}, fmt.Errorf("read image upload: %w", err)
	}
	return form, nil
}

func decodeJSONProductForm(r *http.Request) (adminProductForm, error) {
	limited := io.LimitReader(r.Body, maxAdminBodySize)
	defer r.Body.Close()
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()

	var req adminProductRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return adminProductForm{}, errors.New("request body required")
		}
		return adminProductForm{}, fmt.Errorf("invalid request body: %w", err)
	}
	return adminProductForm{
		Name:      req.Name,
		Species:   req.Species,
		Price:     req.Price,
		Available: req.Available,
	}, nil
}

func parsePriceField(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("price is required")
	}
	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.New("price must be a number")
	}
	return price, nil
}

// parseAvailableField follows checkbox form semantics: an absent field means
// unavailable.
func parseAvailableField(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "false", "0", "off":
		return false, nil
	case "true", "1", "on":
		return true, nil
	}
	return false, errors.New("available must be a boolean")
}

func writeAdminCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAdminCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrAdminCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
		return
	case errors.Is(err, services.ErrAdminCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("product_conflict", err.Error(), http.StatusConflict))
		return
	case errors.Is(err, services.ErrAdminCatalogNotLoaded):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_not_loaded", err.Error(), http.StatusConflict))
		return
	case errors.Is(err, services.ErrAdminCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
		return
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
			return
		case repoErr.IsUnavailable():
			httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog repository unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	httpx.WriteError(ctx, w, httpx.NewError("catalog_error", err.Error(), http.StatusInternalServerError))
}

type adminProductListResponse struct {
	Products []adminProductPayload `json:"products"`
	Catalog  catalogInfoPayload    `json:"catalog"`
}

type adminProductResponse struct {
	Product adminProductPayload `json:"product"`
}

type productMutationResponse struct {
	Product  adminProductPayload `json:"product"`
	ImageJob *imageJobPayload    `json:"image_job,omitempty"`
}

type adminProductPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	Image     string  `json:"image,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type adminProductRequest struct {
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

type catalogInfoPayload struct {
	Status       string `json:"status"`
	ProductCount int    `json:"product_count"`
	LoadedAt     string `json:"loaded_at,omitempty"`
	LoadError    string `json:"load_error,omitempty"`
}

type pendingChangesResponse struct {
	Changes []string `json:"changes"`
	Count   int      `json:"count"`
}

type catalogReloadResponse struct {
	Status   string `json:"status"`
	Products int    `json:"products"`
}

type imageJobResponse struct {
	Job imageJobPayload `json:"job"`
}

type imageJobPayload struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	FileName    string `json:"file_name,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func newAdminProductPayload(product services.Product) adminProductPayload {
	return adminProductPayload{
		ID:        product.ID,
		Name:      product.Name,
		Species:   product.Species,
		Price:     product.Price,
		Available: product.Available,
		Image:     product.Image,
		CreatedAt: formatTimestamp(product.CreatedAt),
	}
}

func newCatalogInfoPayload(info services.CatalogInfo) catalogInfoPayload {
	return catalogInfoPayload{
		Status:       info.Status,
		ProductCount: info.ProductCount,
		LoadedAt:     formatTimestamp(info.LoadedAt),
		LoadError:    info.LoadError,
	}
}

func newProductMutationResponse(result services.ProductMutationResult) productMutationResponse {
	resp := productMutationResponse{Product: newAdminProductPayload(result.Product)}
	if result.ImageJob != nil {
		job := newImageJobPayload(*result.ImageJob)
		resp.ImageJob = &job
	}
	return resp
}

func newImageJobPayload(job services.ImageJob) imageJobPayload {
	payload := imageJobPayload{
		ID:        job.ID,
		ProductID: job.ProductID,
		FileName:  job.FileName,
		Status:    string(job.Status),
		Error:     job.Error,
		CreatedAt: formatTimestamp(job.CreatedAt),
		UpdatedAt: formatTimestamp(job.UpdatedAt),
	}
	if job.CompletedAt != nil {
		payload.CompletedAt = formatTimestamp(*job.CompletedAt)
	}
	return payload
}
