// Package lifecycle holds the process-wide coordination state of a
// dittocore server.
//
// A single State is created at startup and shared by reference with every
// subsystem. It carries the effective configuration, the executor handle
// used to spawn work, a log-level control handle, the stop/reload phase,
// a lossy broadcast of lifecycle signals, and lock-free counters for
// in-flight and completed work.
//
// The State itself never drains anything. Subsystems subscribe to its
// signals (or poll Stopping) and wind themselves down; Service is the
// serve loop that turns a stop request into an orderly drain and reports
// whether the process should restart in place or exit.
package lifecycle
