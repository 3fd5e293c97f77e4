package services

import (
	"errors"
	"strings"

	"github.com/pawmart/api/internal/repositories"
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}

// resolveImageRef maps a stored image reference to the URL it is served from.
// Empty references fall back to the placeholder; absolute URLs pass through.
func resolveImageRef(imagesBase, placeholder, image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return placeholder
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	if imagesBase == "" {
		return image
	}
	return imagesBase + "/" + image
}
