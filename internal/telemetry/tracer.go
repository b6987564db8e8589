package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for lifecycle and admin spans.
const (
	AttrInstance  = "dittocore.instance"
	AttrSignal    = "dittocore.signal"
	AttrOutcome   = "dittocore.outcome"
	AttrDrained   = "dittocore.drained"
	AttrStage     = "dittocore.stage"
	AttrServer    = "dittocore.server"
	AttrRequestID = "http.request_id"
	AttrClientIP  = "client.ip"

	AttrSpawnActive  = "dittocore.counters.spawn_active"
	AttrHandleActive = "dittocore.counters.handle_active"
	AttrPanics       = "dittocore.counters.panics"
)

// Span names.
const (
	SpanServe       = "lifecycle.serve"
	SpanDrain       = "lifecycle.drain"
	SpanStopServer  = "lifecycle.stop_server"
	SpanAdminPrefix = "admin."
)

// Instance returns an attribute for the process instance ID
func Instance(id string) attribute.KeyValue {
	return attribute.String(AttrInstance, id)
}

// Signal returns an attribute for a broadcast tag
func Signal(tag string) attribute.KeyValue {
	return attribute.String(AttrSignal, tag)
}

// Outcome returns an attribute for the stop outcome
func Outcome(o string) attribute.KeyValue {
	return attribute.String(AttrOutcome, o)
}

// Drained returns an attribute recording whether a drain completed in time
func Drained(ok bool) attribute.KeyValue {
	return attribute.Bool(AttrDrained, ok)
}

// Server returns an attribute naming an auxiliary server
func Server(name string) attribute.KeyValue {
	return attribute.String(AttrServer, name)
}

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// RequestID returns an attribute for the admin request ID
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// Counters returns attributes for the active and panic counters.
func Counters(spawnActive, handleActive, panics uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrSpawnActive, int64(spawnActive)),
		attribute.Int64(AttrHandleActive, int64(handleActive)),
		attribute.Int64(AttrPanics, int64(panics)),
	}
}

// StartAdminSpan starts a server span for an admin API operation.
func StartAdminSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAdminPrefix+operation,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}
