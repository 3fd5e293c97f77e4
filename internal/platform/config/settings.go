package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StorefrontSettings mirrors the optional YAML document shipped next to the catalog.
// Every field is optional; the loader falls back to built-in defaults and lets
// environment variables take precedence.
type StorefrontSettings struct {
	StoreName           string `yaml:"store_name"`
	Currency            string `yaml:"currency"`
	Locale              string `yaml:"locale"`
	PlaceholderImageURL string `yaml:"placeholder_image_url"`
	ImagesBaseURL       string `yaml:"images_base_url"`
	OrderLinkBase       string `yaml:"order_link_base"`
	OrderRecipient      string `yaml:"order_recipient"`
}

func (s StorefrontSettings) stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// loadSettingsFile reads the storefront settings document. A missing file is not an
// error; a present but malformed document is.
func loadSettingsFile(path string) (StorefrontSettings, error) {
	if strings.TrimSpace(path) == "" {
		return StorefrontSettings{}, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return StorefrontSettings{}, nil
	}
	if err != nil {
		return StorefrontSettings{}, fmt.Errorf("config: unable to read %s: %w", path, err)
	}

	var settings StorefrontSettings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return StorefrontSettings{}, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return settings, nil
}
