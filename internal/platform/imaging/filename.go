// Package imaging derives product image file names and re-encodes uploaded
// image files into the fixed storefront format.
package imaging

import (
	"fmt"
	"strings"
	"unicode"
)

// BuildImageFileName composes the stored file name for a product image from
// the product identifier and a slug of the product name.
func BuildImageFileName(productID, name string) (string, error) {
	id, err := validateSegment("productID", productID)
	if err != nil {
		return "", err
	}
	slug := Slugify(name)
	if slug == "" {
		return fmt.Sprintf("%s.jpg", id), nil
	}
	return fmt.Sprintf("%s-%s.jpg", id, slug), nil
}

// Slugify lowercases the name and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) && r < unicode.MaxASCII || unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ValidateFileName rejects names that could escape the images directory.
func ValidateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("imaging: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("imaging: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("imaging: fileName contains invalid traversal sequence")
	}
	return value, nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("imaging: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("imaging: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("imaging: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
