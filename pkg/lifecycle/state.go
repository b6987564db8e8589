package lifecycle

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/sourcegraph/conc/panics"
)

// Runtime schedules work off the caller's goroutine. Go reports false when
// fn was not scheduled and will never run.
type Runtime interface {
	Go(fn func()) bool
}

// LevelControl changes log verbosity at runtime.
type LevelControl interface {
	Level() string
	SetLevel(level string) error
}

// Signal is a broadcast lifecycle tag.
type Signal string

const (
	SignalShutdown Signal = "shutdown"
	SignalReload   Signal = "reload"
)

// Outcome is the final decision read by the process before exiting.
type Outcome uint32

const (
	// OutcomeRunning means no stop has been requested.
	OutcomeRunning Outcome = iota
	// OutcomeTerminate means the process should exit.
	OutcomeTerminate
	// OutcomeRestart means the process should restart in place.
	OutcomeRestart
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeTerminate:
		return "terminate"
	case OutcomeRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// State is the shared lifecycle state of one server incarnation.
//
// The stopping and reloading flags live in a single phase word that only
// ever moves away from OutcomeRunning once, by compare-and-swap. The first
// stop request therefore decides both flags, and no reader can see
// stopping without the matching reloading value.
type State struct {
	id      string
	cfg     *config.Config
	started time.Time
	rt      Runtime
	levels  LevelControl

	phase    atomic.Uint32
	signal   *Broadcaster[Signal]
	counters Counters
}

// New creates the state for one server incarnation. rt may be nil when the
// caller never spawns work; Runtime then panics. A nil cfg is replaced by
// the default configuration.
func New(cfg *config.Config, rt Runtime, levels LevelControl) *State {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	return &State{
		id:      uuid.NewString(),
		cfg:     cfg,
		started: time.Now(),
		rt:      rt,
		levels:  levels,
		signal:  NewBroadcaster[Signal](SignalCapacity),
	}
}

// ID returns the random identifier of this incarnation.
func (s *State) ID() string { return s.id }

// Config returns the configuration this incarnation was started with.
// Callers must treat it as read-only.
func (s *State) Config() *config.Config { return s.cfg }

// Started returns when New was called.
func (s *State) Started() time.Time { return s.started }

// Uptime returns the time elapsed since Started.
func (s *State) Uptime() time.Duration { return time.Since(s.started) }

// Levels returns the log-level control handle, which may be nil.
func (s *State) Levels() LevelControl { return s.levels }

// Counters returns the request-lifecycle counters.
func (s *State) Counters() *Counters { return &s.counters }

// Runtime returns the executor handle. Calling it on a state built without
// one is a wiring bug and panics.
func (s *State) Runtime() Runtime {
	if s.rt == nil {
		panic("lifecycle: runtime handle not available")
	}
	return s.rt
}

// Stopping reports whether a stop has been requested. Once true it stays true.
func (s *State) Stopping() bool {
	return Outcome(s.phase.Load()) != OutcomeRunning
}

// Reloading reports whether the requested stop is a restart. It is only
// meaningful while Stopping is true.
func (s *State) Reloading() bool {
	return Outcome(s.phase.Load()) == OutcomeRestart
}

// Outcome returns the stop decision in one read.
func (s *State) Outcome() Outcome {
	return Outcome(s.phase.Load())
}

// Stop requests a restart (reload true) or a terminal stop, then
// broadcasts tag. Only the first request changes the flags; it returns
// true for that caller. Later callers still broadcast, so subscribers
// must tolerate duplicate tags.
func (s *State) Stop(reload bool, tag Signal) bool {
	target := OutcomeTerminate
	if reload {
		target = OutcomeRestart
	}
	won := s.phase.CompareAndSwap(uint32(OutcomeRunning), uint32(target))
	delivered := s.signal.Send(tag)

	if won {
		logger.Info("Stop requested",
			logger.KeyInstance, s.id,
			logger.KeyOutcome, target.String(),
			logger.KeySignal, string(tag),
			"subscribers", delivered)
	} else {
		logger.Debug("Stop already in progress",
			logger.KeyOutcome, s.Outcome().String(),
			logger.KeySignal, string(tag))
	}
	return won
}

// Shutdown requests a terminal stop.
func (s *State) Shutdown(tag Signal) bool {
	return s.Stop(false, tag)
}

// Reload requests a restart in place.
func (s *State) Reload(tag Signal) bool {
	return s.Stop(true, tag)
}

// Subscribe returns an independent cursor into signals sent from now on.
// Close it when done.
func (s *State) Subscribe() *Subscription[Signal] {
	return s.signal.Subscribe()
}

// Broadcast sends tag without touching the flags and returns how many
// subscribers received it.
func (s *State) Broadcast(tag Signal) int {
	return s.signal.Send(tag)
}

// Subscribers returns the number of live signal subscriptions.
func (s *State) Subscribers() int {
	return s.signal.Len()
}

// Spawn runs fn on the executor as one StageSpawn unit and reports whether
// the executor accepted it. A panic in fn is recovered, counted, and logged
// with name. A rejected task is settled as aborted so spawn-active never
// stays raised.
//
// Spawn blocks while the executor has no free worker.
func (s *State) Spawn(name string, fn func()) bool {
	rt := s.Runtime()
	w := s.counters.Begin(StageSpawn)
	accepted := rt.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			w.Panic()
			logger.Error("Spawned task panicked",
				logger.KeyTask, name,
				logger.KeyError, r.String())
			return
		}
		w.Finish()
	})
	if !accepted {
		w.Panic()
		logger.Warn("Spawn rejected by executor", logger.KeyTask, name)
	}
	return accepted
}

// dispatch runs fn as a spawned task named name. Without a runtime, or
// when the executor rejects the task, fn runs on the caller's goroutine.
func (s *State) dispatch(name string, fn func()) {
	if s.rt != nil && s.Spawn(name, fn) {
		return
	}
	fn()
}
