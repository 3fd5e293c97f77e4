// Package memory provides the in-memory repository implementations backing the
// storefront. The catalog is a snapshot of the products document, carts and
// browsing state live per session with a TTL, and re-encoded images are held in
// memory with a write-through copy on disk.
package memory

import "fmt"

// Error implements repositories.RepositoryError for memory backed repositories.
type Error struct {
	op       string
	detail   string
	notFound bool
	conflict bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %s", e.op, e.detail)
	}
	return e.detail
}

// IsNotFound reports whether the error represents a missing record.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting write.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a transient backend outage.
// Memory repositories are never transiently unavailable.
func (e *Error) IsUnavailable() bool {
	return false
}

func notFoundError(op, detail string) *Error {
	return &Error{op: op, detail: detail, notFound: true}
}

func conflictError(op, detail string) *Error {
	return &Error{op: op, detail: detail, conflict: true}
}

func invalidError(op, detail string) *Error {
	return &Error{op: op, detail: detail}
}
