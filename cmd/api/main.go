package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pawmart/api/internal/handlers"
	"github.com/pawmart/api/internal/platform/config"
	"github.com/pawmart/api/internal/platform/idempotency"
	"github.com/pawmart/api/internal/platform/jobs"
	"github.com/pawmart/api/internal/platform/money"
	"github.com/pawmart/api/internal/platform/observability"
	"github.com/pawmart/api/internal/repositories/memory"
	"github.com/pawmart/api/internal/services"
)

const (
	cleanupInterval = time.Hour
	cleanupBatch    = 256
	shutdownGrace   = 10 * time.Second
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("configuration rejected", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("configuration load failed", zap.Error(err))
	}

	registry, err := memory.NewRegistry(memory.RegistryDeps{
		ImagesDir:  cfg.Catalog.ImagesDir,
		SessionTTL: cfg.Session.TTL,
	})
	if err != nil {
		logger.Fatal("repository init failed", zap.Error(err))
	}

	formatter, err := money.NewFormatter(cfg.Storefront.Locale, cfg.Storefront.Currency)
	if err != nil {
		logger.Fatal("price formatter init failed", zap.Error(err))
	}

	queue, err := jobs.NewQueue(jobs.QueueDeps{
		Size:    cfg.Images.QueueSize,
		Workers: cfg.Images.Workers,
		Logger:  zapEventLogger(logger.Named("jobs"), "queue log"),
	})
	if err != nil {
		logger.Fatal("job queue init failed", zap.Error(err))
	}
	queue.Start(ctx)

	loader, err := services.NewCatalogLoader(services.CatalogLoaderDeps{
		Repository:   registry.Catalog(),
		DocumentPath: cfg.Catalog.DocumentPath,
		Clock:        time.Now,
		Logger:       zapEventLogger(logger.Named("catalog"), "loader log"),
	})
	if err != nil {
		logger.Fatal("catalog loader init failed", zap.Error(err))
	}

	// A failed initial load keeps the process alive: readiness reports the
	// failure and an admin reload can recover without a restart.
	if count, err := loader.Load(ctx); err != nil {
		logger.Warn("initial catalog load failed", zap.Error(err), zap.String("document", cfg.Catalog.DocumentPath))
	} else {
		logger.Info("catalog loaded", zap.Int("products", count), zap.String("document", cfg.Catalog.DocumentPath))
	}

	imageService, err := services.NewImageService(services.ImageServiceDeps{
		Jobs:           registry.ImageJobs(),
		Images:         registry.Images(),
		Catalog:        registry.Catalog(),
		Queue:          queue,
		MaxUploadBytes: cfg.Images.MaxUploadBytes,
		Clock:          time.Now,
		Logger:         zapEventLogger(logger.Named("images"), "image log"),
	})
	if err != nil {
		logger.Fatal("image service init failed", zap.Error(err))
	}

	storefrontService, err := services.NewStorefrontService(services.StorefrontServiceDeps{
		Catalog:             registry.Catalog(),
		Carts:               registry.Carts(),
		Sessions:            registry.Sessions(),
		Formatter:           formatter,
		ImagesBaseURL:       cfg.Storefront.ImagesBaseURL,
		PlaceholderImageURL: cfg.Storefront.PlaceholderImageURL,
		Clock:               time.Now,
		Logger:              zapEventLogger(logger.Named("storefront"), "storefront log"),
	})
	if err != nil {
		logger.Fatal("storefront service init failed", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository:          registry.Carts(),
		Catalog:             registry.Catalog(),
		Formatter:           formatter,
		ReconcilePolicy:     services.CartReconcilePolicy(cfg.Cart.ReconcilePolicy),
		ImagesBaseURL:       cfg.Storefront.ImagesBaseURL,
		PlaceholderImageURL: cfg.Storefront.PlaceholderImageURL,
		OrderLinkBase:       cfg.Storefront.OrderLinkBase,
		OrderRecipient:      cfg.Storefront.OrderRecipient,
		Clock:               time.Now,
		Logger:              zapEventLogger(logger.Named("cart"), "cart log"),
	})
	if err != nil {
		logger.Fatal("cart service init failed", zap.Error(err))
	}

	adminService, err := services.NewAdminCatalogService(services.AdminCatalogServiceDeps{
		Catalog:    registry.Catalog(),
		Images:     imageService,
		ImageStore: registry.Images(),
		Loader:     loader,
		Clock:      time.Now,
		Logger:     zapEventLogger(logger.Named("admin"), "admin log"),
	})
	if err != nil {
		logger.Fatal("admin catalog service init failed", zap.Error(err))
	}

	exportService, err := services.NewExportService(services.ExportServiceDeps{
		Catalog: registry.Catalog(),
		Images:  registry.Images(),
		Clock:   time.Now,
		Logger:  zapEventLogger(logger.Named("export"), "export log"),
	})
	if err != nil {
		logger.Fatal("export service init failed", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyLog := observability.NewPrintfAdapter(logger.Named("idempotency"))
	guard := idempotency.Middleware(idempotencyStore, idempotency.WithLogger(idempotencyLog))
	stopCleanup := startExpiryCleanup(logger.Named("cleanup"), idempotencyStore, registry)

	storefrontHandlers := handlers.NewStorefrontHandlers(storefrontService)
	cartHandlers := handlers.NewCartHandlers(cartService, formatter)
	imageHandlers := handlers.NewImageHandlers(imageService)
	adminHandlers := handlers.NewAdminCatalogHandlers(storefrontService, adminService, imageService, exportService, handlers.AdminCatalogConfig{
		MaxUploadBytes: cfg.Images.MaxUploadBytes,
	})
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthCatalog(registry.Catalog()),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		// The session middleware runs first so the request logger sees the
		// session id it tags on the context.
		handlers.SessionMiddleware(handlers.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
		}),
		observability.RequestLoggerMiddleware(),
		guard,
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithStorefrontRoutes(storefrontHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithImageRoutes(imageHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithAdminMiddlewares(middleware.NoCache),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	httpLogger := logger.Named("http")
	go func() {
		httpLogger.Info("pawmart api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received, draining in-flight requests")

	stopCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown incomplete", zap.Error(err))
	}
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Error("job queue drain incomplete", zap.Error(err))
	}
}

// startExpiryCleanup sweeps expired idempotency records, carts, and session
// state on an interval until the returned stop function is called.
func startExpiryCleanup(logger *zap.Logger, store *idempotency.MemoryStore, registry *memory.Registry) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(cleanupInterval)

	sweeps := []struct {
		name string
		run  func(ctx context.Context, now time.Time, limit int) (int, error)
	}{
		{"idempotency", store.CleanupExpired},
		{"carts", registry.Carts().CleanupExpired},
		{"sessions", registry.Sessions().CleanupExpired},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ticker.C:
				now := time.Now().UTC()
				for _, sweep := range sweeps {
					runCtx, cancelRun := context.WithTimeout(ctx, time.Minute)
					removed, err := sweep.run(runCtx, now, cleanupBatch)
					cancelRun()
					switch {
					case err != nil:
						logger.Error("cleanup error", zap.String("sweep", sweep.name), zap.Error(err))
					case removed > 0:
						logger.Info("expired records removed", zap.String("sweep", sweep.name), zap.Int("count", removed))
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		cancel()
		wg.Wait()
	}
}

// zapEventLogger adapts a zap logger to the event callback the services and
// queue expect.
func zapEventLogger(logger *zap.Logger, message string) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(message, zFields...)
	}
}
