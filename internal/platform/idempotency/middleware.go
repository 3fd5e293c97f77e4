package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pawmart/api/internal/platform/requestctx"
)

const (
	keyHeader    = "Idempotency-Key"
	replayHeader = "X-Idempotent-Replay"
)

// Logger matches the printf adapters used across the platform packages.
type Logger interface {
	Printf(format string, args ...any)
}

type settings struct {
	header string
	ttl    time.Duration
	clock  func() time.Time
	logger Logger
}

// Option adjusts middleware behaviour.
type Option func(*settings)

// WithHeader overrides the request header carrying the key.
func WithHeader(name string) Option {
	return func(cfg *settings) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.header = name
		}
	}
}

// WithTTL bounds how long completed responses stay replayable.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *settings) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithLogger receives persistence failures that cannot surface to clients.
func WithLogger(logger Logger) Option {
	return func(cfg *settings) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(cfg *settings) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware replays stored responses for mutating requests that repeat an
// Idempotency-Key. The header is optional: requests without it pass straight
// through, which keeps the storefront client untouched while admin clients
// can retry catalog mutations without minting duplicate products. Keys are
// scoped to the calling session, so two sessions reusing a value never
// collide.
func Middleware(store Store, opts ...Option) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := settings{header: keyHeader, ttl: DefaultTTL, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			value := strings.TrimSpace(r.Header.Get(cfg.header))
			if value == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := bufferBody(r)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "idempotency_read_body_failed", "unable to read request body")
				return
			}

			session := sessionScope(r.Context())
			key := Key{
				Value:       value,
				Session:     session,
				Fingerprint: fingerprint(r, body, session),
			}

			outcome, stored, err := store.Begin(r.Context(), key, cfg.clock().UTC(), cfg.ttl)
			if err != nil {
				if errors.Is(err, ErrKeyConflict) {
					respondError(w, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
					return
				}
				if cfg.logger != nil {
					cfg.logger.Printf("idempotency: begin failed for key %s (session %s): %v", value, session, err)
				}
				respondError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
				return
			}

			switch outcome {
			case OutcomeReplay:
				writeResponse(w, *stored, true)
				return
			case OutcomeInFlight:
				respondError(w, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
				return
			}

			capture := newCaptureWriter()
			next.ServeHTTP(capture, r)
			resp := capture.response()

			if err := store.Complete(r.Context(), key, resp, cfg.clock().UTC(), cfg.ttl); err != nil {
				if cfg.logger != nil {
					cfg.logger.Printf("idempotency: persist failed for key %s (session %s): %v", value, session, err)
				}
				if abortErr := store.Abort(r.Context(), key); abortErr != nil && cfg.logger != nil {
					cfg.logger.Printf("idempotency: abort failed for key %s: %v", value, abortErr)
				}
				respondError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to persist idempotency state")
				return
			}

			writeResponse(w, resp, false)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func sessionScope(ctx context.Context) string {
	if id := strings.TrimSpace(requestctx.SessionID(ctx)); id != "" {
		return id
	}
	return "anonymous"
}

// bufferBody drains the request body and replaces it with a replayable copy
// so the handler still sees the full payload.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := r.Body.Close(); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func fingerprint(r *http.Request, body []byte, session string) string {
	return hashParts(
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
		r.Host,
		r.Header.Get("Content-Type"),
		session,
		string(body),
	)
}

// writeResponse copies a captured or stored response onto the live writer,
// replacing any headers set by earlier middleware.
func writeResponse(w http.ResponseWriter, resp StoredResponse, replayed bool) {
	h := w.Header()
	for name := range h {
		h.Del(name)
	}
	for name, values := range resp.Header {
		h[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if replayed {
		h.Set(replayHeader, "true")
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// captureWriter buffers the handler's response so it can be stored before any
// byte reaches the client.
type captureWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 && status > 0 {
		c.status = status
	}
}

func (c *captureWriter) Write(data []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(data)
}

func (c *captureWriter) response() StoredResponse {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := StoredResponse{Status: status}
	if len(c.header) > 0 {
		resp.Header = make(http.Header, len(c.header))
		for name, values := range c.header {
			resp.Header[name] = append([]string(nil), values...)
		}
	}
	if c.body.Len() > 0 {
		resp.Body = append([]byte(nil), c.body.Bytes()...)
	}
	return resp
}
