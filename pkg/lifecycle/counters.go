package lifecycle

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
)

// Stage identifies one of the two accounted lifecycle stages of a unit of work.
type Stage uint8

const (
	// StageSpawn covers a task scheduled on the executor.
	StageSpawn Stage = iota
	// StageHandle covers handling of a single request.
	StageHandle
)

func (s Stage) String() string {
	switch s {
	case StageSpawn:
		return "spawn"
	case StageHandle:
		return "handle"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// ErrPanicked matches a *PanicError.
var ErrPanicked = errors.New("work panicked")

// PanicError carries a panic recovered by Counters.Guard.
type PanicError struct {
	Stage     Stage
	Recovered *panics.Recovered
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during %s: %v", e.Stage, e.Recovered.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == ErrPanicked
}

// Unwrap exposes the recovered value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Recovered.Value.(error); ok {
		return err
	}
	return nil
}

// Counters is the lock-free request-lifecycle bookkeeping. For every
// Enter there is exactly one Exit or Abort on the same stage; Work and
// Guard enforce that pairing for callers. An unpaired Exit or Abort is a
// no-op, so active never wraps below zero. Values are never reset.
//
// Each counter is individually atomic; no ordering holds across counters.
type Counters struct {
	spawnActive    atomic.Uint64
	spawnFinished  atomic.Uint64
	handleActive   atomic.Uint64
	handleFinished atomic.Uint64
	panics         atomic.Uint64
}

// CounterSnapshot is a point-in-time read of all five counters. Fields are
// read one after another, so the snapshot is not a consistent cut.
type CounterSnapshot struct {
	SpawnActive    uint64 `json:"spawn_active" yaml:"spawn_active" toml:"spawn_active"`
	SpawnFinished  uint64 `json:"spawn_finished" yaml:"spawn_finished" toml:"spawn_finished"`
	HandleActive   uint64 `json:"handle_active" yaml:"handle_active" toml:"handle_active"`
	HandleFinished uint64 `json:"handle_finished" yaml:"handle_finished" toml:"handle_finished"`
	Panics         uint64 `json:"panics" yaml:"panics" toml:"panics"`
}

// Idle reports whether no work of either stage was in flight when read.
func (s CounterSnapshot) Idle() bool {
	return s.SpawnActive == 0 && s.HandleActive == 0
}

func (c *Counters) pair(stage Stage) (active, finished *atomic.Uint64) {
	if stage == StageSpawn {
		return &c.spawnActive, &c.spawnFinished
	}
	return &c.handleActive, &c.handleFinished
}

// Enter records the start of a unit of work.
func (c *Counters) Enter(stage Stage) {
	active, _ := c.pair(stage)
	active.Add(1)
}

// Exit records normal completion: finished goes up, active goes down. It
// reports false and changes nothing when stage has no active unit.
func (c *Counters) Exit(stage Stage) bool {
	active, finished := c.pair(stage)
	if !decrement(active) {
		return false
	}
	finished.Add(1)
	return true
}

// Abort records abnormal termination: panics goes up, active goes down. It
// reports false and changes nothing when stage has no active unit.
func (c *Counters) Abort(stage Stage) bool {
	active, _ := c.pair(stage)
	if !decrement(active) {
		return false
	}
	c.panics.Add(1)
	return true
}

// decrement lowers v by one unless it is already zero.
func decrement(v *atomic.Uint64) bool {
	for {
		cur := v.Load()
		if cur == 0 {
			return false
		}
		if v.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Active returns the in-flight count of stage.
func (c *Counters) Active(stage Stage) uint64 {
	active, _ := c.pair(stage)
	return active.Load()
}

// Finished returns the completed count of stage.
func (c *Counters) Finished(stage Stage) uint64 {
	_, finished := c.pair(stage)
	return finished.Load()
}

// Panics returns the number of aborted units across both stages.
func (c *Counters) Panics() uint64 {
	return c.panics.Load()
}

// Snapshot reads all five counters.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		SpawnActive:    c.spawnActive.Load(),
		SpawnFinished:  c.spawnFinished.Load(),
		HandleActive:   c.handleActive.Load(),
		HandleFinished: c.handleFinished.Load(),
		Panics:         c.panics.Load(),
	}
}

// Begin enters stage and returns a token that settles it exactly once.
func (c *Counters) Begin(stage Stage) *Work {
	c.Enter(stage)
	return &Work{c: c, stage: stage}
}

// Guard runs fn as one unit of stage. A panic in fn is recovered, counted,
// and returned as a *PanicError; otherwise fn's error is returned and the
// unit counts as finished.
func (c *Counters) Guard(stage Stage, fn func() error) error {
	w := c.Begin(stage)

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = fn() })

	if r := pc.Recovered(); r != nil {
		w.Panic()
		return &PanicError{Stage: stage, Recovered: r}
	}
	w.Finish()
	return err
}

// Work is an entered unit of accounting. Only the first of Finish or Panic
// has an effect.
type Work struct {
	c       *Counters
	stage   Stage
	settled atomic.Bool
}

// Stage returns the stage the unit was entered under.
func (w *Work) Stage() Stage {
	return w.stage
}

// Finish settles the unit as completed. It reports whether this call settled it.
func (w *Work) Finish() bool {
	if !w.settled.CompareAndSwap(false, true) {
		return false
	}
	w.c.Exit(w.stage)
	return true
}

// Panic settles the unit as aborted. It reports whether this call settled it.
func (w *Work) Panic() bool {
	if !w.settled.CompareAndSwap(false, true) {
		return false
	}
	w.c.Abort(w.stage)
	return true
}
