package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pawmart/api/internal/platform/httpx"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

// RouteRegistrar hangs a feature's routes off the provided router group.
type RouteRegistrar func(r chi.Router)

type routerOptions struct {
	middlewares      []func(http.Handler) http.Handler
	adminMiddlewares []func(http.Handler) http.Handler
	health           *HealthHandlers

	storefront RouteRegistrar
	cart       RouteRegistrar
	images     RouteRegistrar
	admin      RouteRegistrar
}

// Option customises the router before construction.
type Option func(*routerOptions)

// NewRouter assembles the chi router: health probes at the root, the
// versioned feature groups beneath /api/v1, and JSON errors for anything
// unmatched.
func NewRouter(opts ...Option) chi.Router {
	var cfg routerOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(requestTimeout))
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		registerGroup(api, "/storefront", cfg.storefront, nil)
		registerGroup(api, "/cart", cfg.cart, nil)
		registerGroup(api, "/images", cfg.images, nil)
		registerGroup(api, "/admin", cfg.admin, cfg.adminMiddlewares)
	})

	return r
}

// registerGroup mounts one feature group with its middlewares; a group
// without a registrar answers 501 on every path.
func registerGroup(api chi.Router, path string, registrar RouteRegistrar, groupMW []func(http.Handler) http.Handler) {
	api.Route(path, func(group chi.Router) {
		for _, mw := range groupMW {
			if mw != nil {
				group.Use(mw)
			}
		}
		if registrar != nil {
			registrar(group)
			return
		}

		name := strings.TrimPrefix(path, "/")
		stub := func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
		}
		group.HandleFunc("/", stub)
		group.HandleFunc("/*", stub)
		group.NotFound(stub)
		group.MethodNotAllowed(stub)
	})
}

// WithMiddlewares appends global middleware behind the built-in request id,
// real ip, and timeout set.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerOptions) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithAdminMiddlewares appends middleware applied to the /admin group only.
func WithAdminMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerOptions) {
		cfg.adminMiddlewares = append(cfg.adminMiddlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers behind /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerOptions) {
		cfg.health = h
	}
}

// WithStorefrontRoutes wires the shopper view endpoints.
func WithStorefrontRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerOptions) {
		cfg.storefront = reg
	}
}

// WithCartRoutes wires the cart endpoints.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerOptions) {
		cfg.cart = reg
	}
}

// WithImageRoutes wires the image delivery endpoints.
func WithImageRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerOptions) {
		cfg.images = reg
	}
}

// WithAdminRoutes wires the admin catalog endpoints.
func WithAdminRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerOptions) {
		cfg.admin = reg
	}
}
