package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Process lifecycle
	KeyInstance = "instance" // Per-start instance ID
	KeySignal   = "signal"   // Broadcast tag: shutdown, reload, ...
	KeyOutcome  = "outcome"  // restart, terminate
	KeyPhase    = "phase"    // running, stopping
	KeyStage    = "stage"    // spawn, handle
	KeyTask     = "task"     // Name of a spawned task
	KeyMissed   = "missed"   // Signals dropped for a lagging subscriber
	KeyUptime   = "uptime"
	KeyPID      = "pid"

	// Counters
	KeySpawnActive    = "spawn_active"
	KeySpawnFinished  = "spawn_finished"
	KeyHandleActive   = "handle_active"
	KeyHandleFinished = "handle_finished"
	KeyPanics         = "panics"

	// Admin HTTP
	KeyRequestID   = "request_id"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyClientIP    = "client_ip"
	KeyRequestedBy = "requested_by"
	KeyDurationMs  = "duration_ms"

	// Misc
	KeyError   = "error"
	KeyFrom    = "from"
	KeyTo      = "to"
	KeyFile    = "file"
	KeyAddress = "address"
	KeyTimeout = "timeout"
)

// Err returns a slog.Attr for an error; nil errors produce an empty attr
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Signal returns a slog.Attr for a broadcast tag.
func Signal(tag string) slog.Attr {
	return slog.String(KeySignal, tag)
}

// Instance returns a slog.Attr for the process instance ID.
func Instance(id string) slog.Attr {
	return slog.String(KeyInstance, id)
}

// Uptime returns a slog.Attr rendering d truncated to milliseconds.
func Uptime(d time.Duration) slog.Attr {
	return slog.Duration(KeyUptime, d.Truncate(time.Millisecond))
}
