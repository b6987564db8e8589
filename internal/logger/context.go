package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext carries the fields every log line of one admin request
// repeats. It is created by the request middleware and filled in as the
// request passes authentication and tracing.
type LogContext struct {
	RequestID string
	TraceID   string
	SpanID    string
	// Method is the operation, e.g. "POST /api/v1/reload".
	Method   string
	ClientIP string
	// Subject is the authenticated token subject, empty before auth.
	Subject   string
	StartTime time.Time
}

// NewLogContext starts the log context of a request.
func NewLogContext(method, clientIP string) *LogContext {
	return &LogContext{
		Method:    method,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// SetSubject records the authenticated subject on the request's log
// context. It is a no-op when ctx carries none.
func SetSubject(ctx context.Context, subject string) {
	if lc := FromContext(ctx); lc != nil {
		lc.Subject = subject
	}
}

// DurationMs returns the milliseconds elapsed since StartTime.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
