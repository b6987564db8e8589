package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/internal/telemetry"
	"github.com/marmos91/dittocore/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// Observe traces, logs and measures each request. It must run after
// chi's RequestID and RealIP middleware.
func Observe(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())
			clientIP := clientIP(r.RemoteAddr)

			lc := logger.NewLogContext(r.Method+" "+r.URL.Path, clientIP)
			lc.RequestID = requestID

			ctx, span := telemetry.StartAdminSpan(r.Context(), lc.Method,
				telemetry.RequestID(requestID),
				telemetry.ClientIP(clientIP))
			defer span.End()
			lc.TraceID = telemetry.TraceID(ctx)
			lc.SpanID = telemetry.SpanID(ctx)
			ctx = logger.WithContext(ctx, lc)

			logger.DebugCtx(ctx, "API request started", "remote_addr", r.RemoteAddr)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			m.Begin()
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			m.Observe(route, r.Method, status, time.Since(lc.StartTime))
			span.SetAttributes(
				attribute.Int("http.status_code", status),
				attribute.String("http.route", route))

			args := []any{
				logger.KeyStatus, status,
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, lc.DurationMs(),
			}
			// Probes are polled constantly; keep them out of INFO.
			if isHealthPath(r.URL.Path) {
				logger.DebugCtx(ctx, "API request completed", args...)
			} else {
				logger.InfoCtx(ctx, "API request completed", args...)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/health/" || path == "/health/ready"
}
