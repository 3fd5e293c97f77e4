package observability

import (
	"strings"
	"unicode"
)

const defaultFieldLimit = 256

// sanitizeString strips control characters and clamps the rune count so
// request-supplied values stay single-line in log output.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultFieldLimit
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, value)
	if runes := []rune(cleaned); len(runes) > limit {
		cleaned = string(runes[:limit])
	}
	return cleaned
}

func sanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

func sanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

func sanitizeSessionID(id string) string {
	if id == "" {
		return ""
	}
	return sanitizeString(id, 64)
}
