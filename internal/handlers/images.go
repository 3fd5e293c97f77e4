package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawmart/api/internal/platform/httpx"
	"github.com/pawmart/api/internal/services"
)

// ImageHandlers serves the re-encoded product images.
type ImageHandlers struct {
	service services.ImageService
}

// NewImageHandlers constructs image delivery handlers.
func NewImageHandlers(service services.ImageService) *ImageHandlers {
	return &ImageHandlers{service: service}
}

// Routes registers image delivery endpoints.
func (h *ImageHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{fileName}", h.getImage)
}

func (h *ImageHandlers) getImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}
	fileName := strings.TrimSpace(chi.URLParam(r, "fileName"))
	if fileName == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "file name is required", http.StatusBadRequest))
		return
	}

	image, err := h.service.GetImage(ctx, fileName)
	if err != nil {
		writeImageError(ctx, w, err)
		return
	}

	etag := buildImageETag(image)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(image.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", etag)
	if !image.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", image.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image.Data)
}

func buildImageETag(image services.EncodedImage) string {
	sum := sha256.Sum256(image.Data)
	return fmt.Sprintf("W/%q", hex.EncodeToString(sum[:8]))
}

func writeImageError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrImageInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrImageNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("image_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrImageJobNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("job_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrImageQueueFull):
		httpx.WriteError(ctx, w, httpx.NewError("image_queue_full", "image re-encode queue is full", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrImageUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("image_unavailable", "image store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("image_error", err.Error(), http.StatusInternalServerError))
	}
}
