package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/repositories"
)

const (
	// ExportArchiveName is the advertised download name for the archive.
	ExportArchiveName = "data.zip"

	exportProductsEntry = "products.json"
	exportImagesDir     = "images/"
)

var (
	// ErrExportNotLoaded indicates no catalog snapshot exists to export.
	ErrExportNotLoaded = errors.New("export service: catalog not loaded")
	// ErrExportUnavailable indicates the export could not be assembled.
	ErrExportUnavailable = errors.New("export service: unavailable")
)

// ExportServiceDeps wires the repositories backing the archive contents.
type ExportServiceDeps struct {
	Catalog repositories.CatalogRepository
	Images  repositories.ImageRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type exportService struct {
	catalog repositories.CatalogRepository
	images  repositories.ImageRepository
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewExportService constructs an ExportService enforcing dependency validation.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("export service: catalog repository is required")
	}
	if deps.Images == nil {
		return nil, errors.New("export service: image repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &exportService{
		catalog: deps.Catalog,
		images:  deps.Images,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

// WriteArchive streams a zip with the current catalog document and every
// stored product image. The export is a read-only snapshot; nothing is
// written back to the repositories.
func (s *exportService) WriteArchive(ctx context.Context, w io.Writer) error {
	info, err := s.catalog.Info(ctx)
	if err != nil {
		return ErrExportUnavailable
	}
	if info.Status != domain.CatalogStatusReady {
		return ErrExportNotLoaded
	}

	products, err := s.catalog.List(ctx)
	if err != nil {
		return ErrExportUnavailable
	}
	images, err := s.images.List(ctx)
	if err != nil {
		return ErrExportUnavailable
	}

	archive := zip.NewWriter(w)
	now := s.now()

	if err := s.writeProducts(archive, products, now); err != nil {
		return err
	}
	for _, image := range images {
		if err := s.writeImage(archive, image); err != nil {
			return err
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("export service: close archive: %w", err)
	}

	s.logger(ctx, "export.archive_written", map[string]any{
		"products": len(products),
		"images":   len(images),
	})
	return nil
}

func (s *exportService) writeProducts(archive *zip.Writer, products []domain.Product, now time.Time) error {
	docs := make([]productDocument, 0, len(products))
	for _, p := range products {
		docs = append(docs, documentFromProduct(p))
	}
	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("export service: encode products: %w", err)
	}

	entry, err := archive.CreateHeader(&zip.FileHeader{
		Name:     exportProductsEntry,
		Method:   zip.Deflate,
		Modified: now,
	})
	if err != nil {
		return fmt.Errorf("export service: create %s: %w", exportProductsEntry, err)
	}
	if _, err := entry.Write(payload); err != nil {
		return fmt.Errorf("export service: write %s: %w", exportProductsEntry, err)
	}
	return nil
}

func (s *exportService) writeImage(archive *zip.Writer, image domain.EncodedImage) error {
	modified := image.UpdatedAt
	if modified.IsZero() {
		modified = s.now()
	}
	entry, err := archive.CreateHeader(&zip.FileHeader{
		Name:     exportImagesDir + image.FileName,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("export service: create image %s: %w", image.FileName, err)
	}
	if _, err := entry.Write(image.Data); err != nil {
		return fmt.Errorf("export service: write image %s: %w", image.FileName, err)
	}
	return nil
}
