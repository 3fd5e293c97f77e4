package domain

import (
	"time"
)

// Product is a single catalog record. The catalog document and the admin editor are the
// only writers; ID and CreatedAt are immutable after creation.
type Product struct {
	ID        string
	Name      string
	Species   string
	Price     float64
	Available bool
	Image     string
	CreatedAt time.Time
}

// CartEntry stores a snapshot copy of a product taken at selection time.
type CartEntry struct {
	ProductID string
	Name      string
	Species   string
	Price     float64
	Available bool
	Image     string
	AddedAt   time.Time
}

// EntryFromProduct snapshots a product into a cart entry.
func EntryFromProduct(p Product, addedAt time.Time) CartEntry {
	return CartEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Price:     p.Price,
		Available: p.Available,
		Image:     p.Image,
		AddedAt:   addedAt,
	}
}

// Cart aggregates the selected entries for one shopper session. At most one entry per
// product id.
type Cart struct {
	SessionID string
	Entries   []CartEntry
	UpdatedAt time.Time
}

// StorefrontState is the explicit per-session application state driving the storefront
// view: the filter inputs and the 1-based page cursor.
type StorefrontState struct {
	Keyword         string
	ShowUnavailable bool
	Page            int
}

// DefaultStorefrontState returns the state of a fresh session.
func DefaultStorefrontState() StorefrontState {
	return StorefrontState{Page: 1}
}

const (
	// CatalogStatusReady indicates the catalog document loaded successfully.
	CatalogStatusReady = "ready"
	// CatalogStatusFailed indicates the last load attempt failed and no catalog is held.
	CatalogStatusFailed = "failed"
)

// CatalogInfo reports the load state of the in-memory catalog.
type CatalogInfo struct {
	Status       string
	ProductCount int
	LoadedAt     time.Time
	LoadError    string
}

// ImageJobStatus describes lifecycle states for image re-encode jobs.
type ImageJobStatus string

const (
	// ImageJobStatusQueued indicates the job is waiting for a worker.
	ImageJobStatusQueued ImageJobStatus = "queued"
	// ImageJobStatusProcessing indicates a worker is decoding and re-encoding the upload.
	ImageJobStatusProcessing ImageJobStatus = "processing"
	// ImageJobStatusSucceeded indicates the re-encoded image is stored.
	ImageJobStatusSucceeded ImageJobStatus = "succeeded"
	// ImageJobStatusFailed indicates the upload could not be decoded or encoded.
	ImageJobStatusFailed ImageJobStatus = "failed"
)

// ImageJob tracks one asynchronous image re-encode.
type ImageJob struct {
	ID          string
	ProductID   string
	FileName    string
	Status      ImageJobStatus
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// EncodedImage is a re-encoded product image held in memory until export.
type EncodedImage struct {
	FileName  string
	Data      []byte
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers cannot mutate stored bytes.
func (i EncodedImage) Clone() EncodedImage {
	out := i
	if len(i.Data) > 0 {
		out.Data = append([]byte(nil), i.Data...)
	}
	return out
}
