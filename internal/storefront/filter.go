// Package storefront implements the catalog browsing core as pure functions: the
// filter predicate, fixed-size pagination, the command reducer over per-session
// state, and the view builder shared by the shopper and admin surfaces.
package storefront

import (
	"strings"

	domain "github.com/pawmart/api/internal/domain"
)

// Filter returns the subsequence of products visible for the given keyword and
// visibility flag. A product matches when any of id, name, or species contains the
// keyword case-insensitively; the empty keyword matches everything. Unavailable
// products are hidden unless showUnavailable is set. Source order is preserved.
func Filter(products []domain.Product, keyword string, showUnavailable bool) []domain.Product {
	needle := strings.ToLower(keyword)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !p.Available && !showUnavailable {
			continue
		}
		if needle != "" && !matchesKeyword(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesKeyword(p domain.Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.ID), needle) ||
		strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Species), needle)
}
