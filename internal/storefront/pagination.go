package storefront

import (
	domain "github.com/pawmart/api/internal/domain"
)

// PageSize is the fixed number of products shown per page.
const PageSize = 4

// maxPageButtons bounds the pagination button window.
const maxPageButtons = 5

// TotalPages returns the number of pages needed for count items.
func TotalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PageSize - 1) / PageSize
}

// ClampPage pins page into [1, totalPages]. When there are no pages at all the
// cursor rests at 1 so the next non-empty result starts from the first page.
func ClampPage(page, totalPages int) int {
	if totalPages <= 0 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PageSlice returns the products shown on the given 1-based page.
func PageSlice(products []domain.Product, page int) []domain.Product {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * PageSize
	if start >= len(products) {
		return []domain.Product{}
	}
	end := start + PageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

// PageWindow returns the page numbers rendered as buttons: a window of at most
// maxPageButtons consecutive pages centered on current, shifted to stay within
// [1, totalPages].
func PageWindow(current, totalPages int) []int {
	if totalPages <= 0 {
		return []int{}
	}
	size := maxPageButtons
	if totalPages < size {
		size = totalPages
	}
	start := current - maxPageButtons/2
	if start < 1 {
		start = 1
	}
	if start > totalPages-size+1 {
		start = totalPages - size + 1
	}
	window := make([]int, 0, size)
	for i := 0; i < size; i++ {
		window = append(window, start+i)
	}
	return window
}
