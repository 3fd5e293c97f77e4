package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pawmart/api/internal/platform/observability"
	"github.com/pawmart/api/internal/platform/requestctx"
)

func TestSessionMiddlewareMintsCookie(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.SessionID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	middleware := SessionMiddleware(SessionConfig{
		CookieName: "pawmart_session",
		TTL:        12 * time.Hour,
		NewID:      func() string { return "01SESSIONMINTED" },
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, req)

	if seen != "01SESSIONMINTED" {
		t.Fatalf("expected minted session id on context, got %q", seen)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "pawmart_session" || cookie.Value != "01SESSIONMINTED" {
		t.Fatalf("unexpected cookie %s=%s", cookie.Name, cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	if cookie.Path != "/" {
		t.Fatalf("expected path /, got %q", cookie.Path)
	}
	if cookie.MaxAge != int((12 * time.Hour).Seconds()) {
		t.Fatalf("expected max-age %d, got %d", int((12 * time.Hour).Seconds()), cookie.MaxAge)
	}
}

func TestSessionMiddlewareReusesCookie(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.SessionID(r.Context())
	})

	middleware := SessionMiddleware(SessionConfig{CookieName: "pawmart_session"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "pawmart_session", Value: "EXISTING01"})
	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, req)

	if seen != "EXISTING01" {
		t.Fatalf("expected existing session id, got %q", seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie for an existing session")
	}
}

func TestSessionMiddlewareReplacesOversizedCookie(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.SessionID(r.Context())
	})

	middleware := SessionMiddleware(SessionConfig{
		NewID: func() string { return "01REPLACEMENT" },
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: defaultSessionCookie, Value: strings.Repeat("a", 200)})
	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, req)

	if seen != "01REPLACEMENT" {
		t.Fatalf("expected replacement session id, got %q", seen)
	}
	if len(rr.Result().Cookies()) != 1 {
		t.Fatalf("expected replacement cookie to be set")
	}
}

func TestSessionMiddlewarePrecedesRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	chain := observability.InjectLoggerMiddleware(logger)(
		SessionMiddleware(SessionConfig{NewID: func() string { return "01LOGGEDSESSION" }})(
			observability.RequestLoggerMiddleware()(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				}),
			),
		),
	)

	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["session_id"]; got != "01LOGGEDSESSION" {
		t.Fatalf("logged session_id = %v, want 01LOGGEDSESSION", got)
	}
}

func TestSanitizeSessionCookie(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{name: "valid", value: "01HXYZABCDEF", want: "01HXYZABCDEF"},
		{name: "trimmed", value: "  01HXYZABCDEF  ", want: "01HXYZABCDEF"},
		{name: "blank", value: "   ", want: ""},
		{name: "oversized", value: strings.Repeat("x", 129), want: ""},
		{name: "non ascii", value: "01HXüZ", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeSessionCookie(tc.value); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
