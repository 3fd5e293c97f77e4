package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultCatalogDocumentPath = "data/products.json"
	defaultCatalogImagesDir    = "data/images"
	defaultSettingsPath        = "data/storefront.yaml"
	defaultStoreName           = "PawMart"
	defaultCurrency            = "USD"
	defaultLocale              = "en-US"
	defaultPlaceholderImageURL = "https://placehold.co/600x400?text=PawMart"
	defaultImagesBaseURL       = "/api/v1/images"
	defaultOrderLinkBase       = "https://wa.me"
	defaultOrderRecipient      = "15551234567"
	defaultSessionCookieName   = "pawmart_session"
	defaultSessionTTL          = 12 * time.Hour
	defaultImageMaxUploadBytes = 8 << 20
	defaultImageQueueSize      = 16
	defaultImageWorkers        = 1
)

// CartReconcilePolicy selects how carts are treated when the catalog is reloaded.
type CartReconcilePolicy string

const (
	// CartReconcileKeep preserves cart entries even when their product vanished or became unavailable.
	CartReconcileKeep CartReconcilePolicy = "keep"
	// CartReconcileDropUnavailable drops entries whose product is gone or unavailable after a reload.
	CartReconcileDropUnavailable CartReconcilePolicy = "drop-unavailable"
)

// Config is the full runtime configuration for the API process, grouped by concern.
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Storefront StorefrontConfig
	Session    SessionConfig
	Images     ImageConfig
	Cart       CartConfig
}

// ServerConfig holds HTTP listener tuning.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CatalogConfig locates the static catalog document and its image assets.
type CatalogConfig struct {
	DocumentPath string
	ImagesDir    string
	SettingsPath string
}

// StorefrontConfig groups presentation settings for the storefront surface.
type StorefrontConfig struct {
	StoreName           string
	Currency            string
	Locale              string
	PlaceholderImageURL string
	ImagesBaseURL       string
	OrderLinkBase       string
	OrderRecipient      string
}

// SessionConfig controls shopper session cookies and state lifetime.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// ImageConfig bounds the upload and re-encode pipeline.
type ImageConfig struct {
	MaxUploadBytes int64
	QueueSize      int
	Workers        int
}

// CartConfig holds cart behaviour toggles.
type CartConfig struct {
	ReconcilePolicy CartReconcilePolicy
}

// ValidationError reports configuration fields that are missing or hold
// unusable values.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid or missing fields: %s", strings.Join(e.fields, ", "))
}

// Fields lists the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option adjusts how Load gathers its inputs.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile points Load at an alternative .env file. An empty path skips
// file loading entirely.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit key/value pairs that win over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv keeps Load from consulting the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, the storefront
// settings document, .env overrides, and environment variables. Precedence for the
// storefront block is env > settings file > defaults.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	fileVars, err := parseEnvFile(options.envFile)
	if err != nil {
		return Config{}, err
	}
	env := envReader{explicit: options.envMap, fileVars: fileVars, system: options.useSystemEnv}

	settingsPath := env.str("API_STOREFRONT_SETTINGS_PATH", defaultSettingsPath)
	settings, err := loadSettingsFile(settingsPath)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Catalog: CatalogConfig{
			DocumentPath: env.str("API_CATALOG_DOCUMENT_PATH", defaultCatalogDocumentPath),
			ImagesDir:    env.str("API_CATALOG_IMAGES_DIR", defaultCatalogImagesDir),
			SettingsPath: settingsPath,
		},
		Storefront: StorefrontConfig{
			StoreName:           env.str("API_STOREFRONT_STORE_NAME", settings.stringOr(settings.StoreName, defaultStoreName)),
			Currency:            strings.ToUpper(env.str("API_STOREFRONT_CURRENCY", settings.stringOr(settings.Currency, defaultCurrency))),
			Locale:              env.str("API_STOREFRONT_LOCALE", settings.stringOr(settings.Locale, defaultLocale)),
			PlaceholderImageURL: env.str("API_STOREFRONT_PLACEHOLDER_IMAGE_URL", settings.stringOr(settings.PlaceholderImageURL, defaultPlaceholderImageURL)),
			ImagesBaseURL:       env.str("API_STOREFRONT_IMAGES_BASE_URL", settings.stringOr(settings.ImagesBaseURL, defaultImagesBaseURL)),
			OrderLinkBase:       env.str("API_STOREFRONT_ORDER_LINK_BASE", settings.stringOr(settings.OrderLinkBase, defaultOrderLinkBase)),
			OrderRecipient:      env.str("API_STOREFRONT_ORDER_RECIPIENT", settings.stringOr(settings.OrderRecipient, defaultOrderRecipient)),
		},
		Session: SessionConfig{
			CookieName: env.str("API_SESSION_COOKIE_NAME", defaultSessionCookieName),
			TTL:        env.duration("API_SESSION_TTL", defaultSessionTTL),
		},
		Images: ImageConfig{
			MaxUploadBytes: env.byteSize("API_IMAGES_MAX_UPLOAD_BYTES", defaultImageMaxUploadBytes),
			QueueSize:      env.integer("API_IMAGES_QUEUE_SIZE", defaultImageQueueSize),
			Workers:        env.integer("API_IMAGES_WORKERS", defaultImageWorkers),
		},
		Cart: CartConfig{
			ReconcilePolicy: CartReconcilePolicy(strings.ToLower(env.str("API_CART_RECONCILE_POLICY", string(CartReconcileKeep)))),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Catalog.DocumentPath) == "" {
		missing = append(missing, "Catalog.DocumentPath")
	}
	if strings.TrimSpace(cfg.Catalog.ImagesDir) == "" {
		missing = append(missing, "Catalog.ImagesDir")
	}
	if !isCurrencyCode(cfg.Storefront.Currency) {
		missing = append(missing, "Storefront.Currency")
	}
	if strings.TrimSpace(cfg.Storefront.Locale) == "" {
		missing = append(missing, "Storefront.Locale")
	}
	if strings.TrimSpace(cfg.Storefront.PlaceholderImageURL) == "" {
		missing = append(missing, "Storefront.PlaceholderImageURL")
	}
	if strings.TrimSpace(cfg.Storefront.OrderLinkBase) == "" {
		missing = append(missing, "Storefront.OrderLinkBase")
	}
	if strings.TrimSpace(cfg.Storefront.OrderRecipient) == "" {
		missing = append(missing, "Storefront.OrderRecipient")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		missing = append(missing, "Session.CookieName")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Images.MaxUploadBytes <= 0 {
		missing = append(missing, "Images.MaxUploadBytes")
	}
	if cfg.Images.QueueSize <= 0 {
		missing = append(missing, "Images.QueueSize")
	}
	if cfg.Images.Workers <= 0 {
		missing = append(missing, "Images.Workers")
	}
	switch cfg.Cart.ReconcilePolicy {
	case CartReconcileKeep, CartReconcileDropUnavailable:
	default:
		missing = append(missing, "Cart.ReconcilePolicy")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// envReader resolves configuration keys against the loader's sources in
// precedence order: explicit map, process environment, .env file.
type envReader struct {
	explicit map[string]string
	fileVars map[string]string
	system   bool
}

func (e envReader) value(key string) (string, bool) {
	if v, ok := e.explicit[key]; ok {
		return v, true
	}
	if e.system {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	v, ok := e.fileVars[key]
	return v, ok
}

func (e envReader) str(key, fallback string) string {
	if v, ok := e.value(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.value(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func (e envReader) integer(key string, fallback int) int {
	v, ok := e.value(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (e envReader) byteSize(key string, fallback int64) int64 {
	v, ok := e.value(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// parseEnvFile reads KEY=VALUE pairs from a dotenv-style file. A missing file
// is not an error so local development works without one.
func parseEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if key, value, ok := splitEnvLine(scanner.Text()); ok {
			vars[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return vars, nil
}

// splitEnvLine parses a single dotenv line, tolerating "export " prefixes,
// surrounding whitespace, and single or double quotes around the value.
func splitEnvLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
