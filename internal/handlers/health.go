package handlers

import (
	"context"
	"net/http"
	"time"

	domain "github.com/pawmart/api/internal/domain"
)

// CatalogStatusProvider reports the load state of the catalog snapshot. The
// catalog repository satisfies it.
type CatalogStatusProvider interface {
	Info(ctx context.Context) (domain.CatalogInfo, error)
}

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	catalog CatalogStatusProvider
	clock   func() time.Time
	started time.Time
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthCatalog wires the catalog provider readiness reports on. Without
// it the service reports ready unconditionally.
func WithHealthCatalog(provider CatalogStatusProvider) HealthOption {
	return func(h *HealthHandlers) {
		h.catalog = provider
	}
}

// WithHealthClock overrides the time source used for uptime reporting.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs health handlers with optional overrides.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	handlers := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(handlers)
		}
	}
	handlers.started = handlers.clock()
	return handlers
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}

// Readyz reports readiness to serve traffic. The service is unready until a
// catalog snapshot has been installed.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusOK, readinessResponse{Status: "ready"})
		return
	}

	info, err := h.catalog.Info(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{
			Status:  "unready",
			Catalog: &catalogInfoPayload{Status: domain.CatalogStatusFailed, LoadError: err.Error()},
		})
		return
	}

	payload := newCatalogInfoPayload(info)
	if info.Status != domain.CatalogStatusReady {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{Status: "unready", Catalog: &payload})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{Status: "ready", Catalog: &payload})
}

type healthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

type readinessResponse struct {
	Status  string              `json:"status"`
	Catalog *catalogInfoPayload `json:"catalog,omitempty"`
}
