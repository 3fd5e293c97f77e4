package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func loadHermetic(t *testing.T, env map[string]string) (Config, error) {
	t.Helper()
	return Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadHermetic(t, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Server.Port, defaultPort; got != want {
		t.Errorf("Server.Port = %q, want %q", got, want)
	}
	if got, want := cfg.Server.ReadTimeout, 15*time.Second; got != want {
		t.Errorf("Server.ReadTimeout = %s, want %s", got, want)
	}
	if got, want := cfg.Catalog.DocumentPath, defaultCatalogDocumentPath; got != want {
		t.Errorf("Catalog.DocumentPath = %q, want %q", got, want)
	}
	if got, want := cfg.Catalog.ImagesDir, defaultCatalogImagesDir; got != want {
		t.Errorf("Catalog.ImagesDir = %q, want %q", got, want)
	}
	if got, want := cfg.Storefront.Currency, defaultCurrency; got != want {
		t.Errorf("Storefront.Currency = %q, want %q", got, want)
	}
	if got, want := cfg.Storefront.Locale, defaultLocale; got != want {
		t.Errorf("Storefront.Locale = %q, want %q", got, want)
	}
	if got, want := cfg.Storefront.OrderLinkBase, defaultOrderLinkBase; got != want {
		t.Errorf("Storefront.OrderLinkBase = %q, want %q", got, want)
	}
	if got, want := cfg.Session.CookieName, defaultSessionCookieName; got != want {
		t.Errorf("Session.CookieName = %q, want %q", got, want)
	}
	if got, want := cfg.Session.TTL, defaultSessionTTL; got != want {
		t.Errorf("Session.TTL = %s, want %s", got, want)
	}
	if got, want := cfg.Images.MaxUploadBytes, int64(defaultImageMaxUploadBytes); got != want {
		t.Errorf("Images.MaxUploadBytes = %d, want %d", got, want)
	}
	if got, want := cfg.Images.Workers, defaultImageWorkers; got != want {
		t.Errorf("Images.Workers = %d, want %d", got, want)
	}
	if got, want := cfg.Cart.ReconcilePolicy, CartReconcileKeep; got != want {
		t.Errorf("Cart.ReconcilePolicy = %q, want %q", got, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                      "9321",
		"API_SERVER_READ_TIMEOUT":              "20s",
		"API_SERVER_WRITE_TIMEOUT":             "25s",
		"API_SERVER_IDLE_TIMEOUT":              "3m",
		"API_CATALOG_DOCUMENT_PATH":            "catalog/items.json",
		"API_CATALOG_IMAGES_DIR":               "catalog/images",
		"API_STOREFRONT_STORE_NAME":            "PawMart Dev",
		"API_STOREFRONT_CURRENCY":              "cop",
		"API_STOREFRONT_LOCALE":                "es-CO",
		"API_STOREFRONT_PLACEHOLDER_IMAGE_URL": "https://cdn.example.com/placeholder.png",
		"API_STOREFRONT_IMAGES_BASE_URL":       "/assets/images",
		"API_STOREFRONT_ORDER_LINK_BASE":       "https://wa.me",
		"API_STOREFRONT_ORDER_RECIPIENT":       "573001112233",
		"API_SESSION_COOKIE_NAME":              "shop_session",
		"API_SESSION_TTL":                      "45m",
		"API_IMAGES_MAX_UPLOAD_BYTES":          "2097152",
		"API_IMAGES_QUEUE_SIZE":                "4",
		"API_IMAGES_WORKERS":                   "2",
		"API_CART_RECONCILE_POLICY":            "drop-unavailable",
	}

	cfg, err := loadHermetic(t, env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Server.Port; got != "9321" {
		t.Errorf("Server.Port = %q, want 9321", got)
	}
	if got, want := cfg.Server.IdleTimeout, 3*time.Minute; got != want {
		t.Errorf("Server.IdleTimeout = %s, want %s", got, want)
	}
	if got := cfg.Catalog.DocumentPath; got != "catalog/items.json" {
		t.Errorf("Catalog.DocumentPath = %q", got)
	}
	if got := cfg.Storefront.Currency; got != "COP" {
		t.Errorf("Storefront.Currency = %q, want upper-cased COP", got)
	}
	if got := cfg.Storefront.Locale; got != "es-CO" {
		t.Errorf("Storefront.Locale = %q", got)
	}
	if got := cfg.Storefront.OrderRecipient; got != "573001112233" {
		t.Errorf("Storefront.OrderRecipient = %q", got)
	}
	if got, want := cfg.Session.TTL, 45*time.Minute; got != want {
		t.Errorf("Session.TTL = %s, want %s", got, want)
	}
	if got := cfg.Images.MaxUploadBytes; got != 2097152 {
		t.Errorf("Images.MaxUploadBytes = %d", got)
	}
	if got := cfg.Images.Workers; got != 2 {
		t.Errorf("Images.Workers = %d", got)
	}
	if got, want := cfg.Cart.ReconcilePolicy, CartReconcileDropUnavailable; got != want {
		t.Errorf("Cart.ReconcilePolicy = %q, want %q", got, want)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "override.env")
	content := "# local overrides\nexport API_SERVER_PORT=7654\nAPI_STOREFRONT_STORE_NAME='DotMart'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Server.Port; got != "7654" {
		t.Errorf("Server.Port = %q, want 7654 from env file", got)
	}
	if got := cfg.Storefront.StoreName; got != "DotMart" {
		t.Errorf("Storefront.StoreName = %q, want unquoted DotMart", got)
	}
}

func TestLoadSourcePrecedence(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "shadowed.env")
	content := "API_STOREFRONT_LOCALE=pt-BR\nAPI_SESSION_COOKIE_NAME=file_session\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("API_STOREFRONT_LOCALE", "fr-FR")
	t.Setenv("API_STOREFRONT_STORE_NAME", "SysMart")

	cfg, err := Load(context.Background(),
		WithEnvFile(envPath),
		WithEnvMap(map[string]string{"API_STOREFRONT_STORE_NAME": "MapMart"}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Explicit map beats the process environment.
	if got := cfg.Storefront.StoreName; got != "MapMart" {
		t.Errorf("Storefront.StoreName = %q, want MapMart", got)
	}
	// Process environment beats the env file.
	if got := cfg.Storefront.Locale; got != "fr-FR" {
		t.Errorf("Storefront.Locale = %q, want fr-FR", got)
	}
	// The env file still fills keys no higher source provides.
	if got := cfg.Session.CookieName; got != "file_session" {
		t.Errorf("Session.CookieName = %q, want file_session", got)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "storefront.yaml")
	content := "store_name: Fluffy Things\ncurrency: EUR\nlocale: de-DE\norder_recipient: \"4915112345678\"\n"
	if err := os.WriteFile(settingsPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	env := map[string]string{
		"API_STOREFRONT_SETTINGS_PATH": settingsPath,
		// Env overrides the settings document.
		"API_STOREFRONT_LOCALE": "de-AT",
	}

	cfg, err := loadHermetic(t, env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Storefront.StoreName; got != "Fluffy Things" {
		t.Errorf("Storefront.StoreName = %q, want value from settings", got)
	}
	if got := cfg.Storefront.Currency; got != "EUR" {
		t.Errorf("Storefront.Currency = %q, want value from settings", got)
	}
	if got := cfg.Storefront.Locale; got != "de-AT" {
		t.Errorf("Storefront.Locale = %q, want env to win over settings", got)
	}
	if got := cfg.Storefront.OrderRecipient; got != "4915112345678" {
		t.Errorf("Storefront.OrderRecipient = %q, want value from settings", got)
	}
	if got, want := cfg.Storefront.PlaceholderImageURL, defaultPlaceholderImageURL; got != want {
		t.Errorf("Storefront.PlaceholderImageURL = %q, want default", got)
	}
}

func TestLoadSettingsFileMalformed(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "storefront.yaml")
	if err := os.WriteFile(settingsPath, []byte("store_name: [unclosed"), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	env := map[string]string{"API_STOREFRONT_SETTINGS_PATH": settingsPath}
	if _, err := loadHermetic(t, env); err == nil {
		t.Fatal("Load accepted a malformed settings document")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad currency":         {"API_STOREFRONT_CURRENCY": "US"},
		"bad reconcile policy": {"API_CART_RECONCILE_POLICY": "reap"},
		"zero workers":         {"API_IMAGES_WORKERS": "0"},
		"blank recipient":      {"API_STOREFRONT_ORDER_RECIPIENT": "   "},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadHermetic(t, env)
			if err == nil {
				t.Fatal("Load accepted invalid configuration")
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
		})
	}
}
