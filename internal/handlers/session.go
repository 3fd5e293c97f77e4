package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pawmart/api/internal/platform/requestctx"
)

const (
	defaultSessionCookie   = "pawmart_session"
	maxSessionCookieLength = 128
)

// SessionConfig controls the session cookie middleware.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	NewID      func() string
}

// SessionMiddleware assigns every request a stable session identifier. An
// existing cookie is reused; otherwise a fresh identifier is minted and set on
// the response. The identifier travels on the request context and is read by
// the storefront, cart, and admin handlers.
func SessionMiddleware(cfg SessionConfig) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = defaultSessionCookie
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(name); err == nil {
				sessionID = sanitizeSessionCookie(cookie.Value)
			}
			if sessionID == "" {
				sessionID = newID()
				cookie := &http.Cookie{
					Name:     name,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}
				if cfg.TTL > 0 {
					cookie.MaxAge = int(cfg.TTL / time.Second)
				}
				http.SetCookie(w, cookie)
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithSessionID(r.Context(), sessionID)))
		})
	}
}

// sanitizeSessionCookie rejects values a client could not have received from
// this service. A rejected cookie is replaced with a fresh identifier.
func sanitizeSessionCookie(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxSessionCookieLength {
		return ""
	}
	for _, r := range value {
		if r <= 0x20 || r >= 0x7f {
			return ""
		}
	}
	return value
}

// sessionIDFromRequest extracts the session identifier installed by
// SessionMiddleware. Handlers reject requests without one.
func sessionIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(requestctx.SessionID(r.Context()))
}
