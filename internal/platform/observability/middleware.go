package observability

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pawmart/api/internal/platform/httpx"
	"github.com/pawmart/api/internal/platform/requestctx"
)

// InjectLoggerMiddleware seeds every request context with the process logger.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware enriches the request logger with request identity
// fields, rebinds it onto the context, and emits one completion line per
// request. Panicking requests are logged as 500s before the panic resumes.
func RequestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			route := requestRoute(r)

			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", sanitizeMethod(r.Method)),
				zap.String("route", sanitizeRoute(route)),
				zap.String("session_id", sanitizeSessionID(requestctx.SessionID(ctx))),
			}
			if info, ok := requestctx.Trace(ctx); ok {
				fields = append(fields, zap.String("trace_id", info.TraceID))
			}
			if ip := remoteIP(r); ip != "" {
				fields = append(fields, zap.String("remote_ip", ip))
			}
			logger := requestctx.Logger(ctx).With(fields...)

			ctx = requestctx.WithLogger(ctx, logger)
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			start := time.Now()
			logger.Debug("request started")

			defer func() {
				v := recover()
				logCompletion(ctx, logger, rec, route, time.Since(start), v != nil)
				if v != nil {
					panic(v)
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

func logCompletion(ctx context.Context, logger *zap.Logger, rec *statusRecorder, route string, latency time.Duration, panicked bool) {
	status := rec.code
	if panicked && status < http.StatusInternalServerError {
		status = http.StatusInternalServerError
	}
	stampSpan(ctx, route, status)

	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.Int64("bytes", rec.written),
	}
	switch {
	case panicked || status >= http.StatusInternalServerError:
		logger.Error("request completed", fields...)
	case status >= http.StatusBadRequest:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

func stampSpan(ctx context.Context, route string, status int) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{semconv.HTTPResponseStatusCode(status)}
	if route != "" {
		attrs = append(attrs, semconv.HTTPRoute(sanitizeRoute(route)))
	}
	span.SetAttributes(attrs...)

	code := codes.Ok
	if status >= http.StatusInternalServerError {
		code = codes.Error
	}
	span.SetStatus(code, http.StatusText(status))
}

// RecoveryMiddleware captures panics, logs the stack trace, and answers with
// the JSON error envelope.
func RecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					ctx := r.Context()
					logger := requestctx.Logger(ctx)
					if logger == requestctx.NoopLogger() {
						logger = fallback
					}
					logger.Error("recovered from panic",
						zap.Any("panic", v),
						zap.ByteString("stack", debug.Stack()),
					)
					httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// requestRoute prefers the chi route pattern so path parameters collapse to
// their placeholder form in logs and span names.
func requestRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if r.URL != nil && r.URL.Path != "" {
		return r.URL.Path
	}
	return "/"
}

func remoteIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return sanitizeString(addr, 64)
}

// statusRecorder remembers the status code and byte count so the completion
// log can report them after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	code    int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if code >= 100 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}
