// Package executor provides the bounded goroutine pool that lifecycle
// work is spawned on.
package executor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/sourcegraph/conc/pool"
)

// Executor runs tasks on at most MaxWorkers goroutines. Go blocks while
// every worker is busy. After Wait the executor is closed and Go rejects
// further tasks.
type Executor struct {
	p          *pool.Pool
	maxWorkers int

	closed   atomic.Bool
	inflight atomic.Int64
	waited   atomic.Bool

	submitted atomic.Uint64
	rejected  atomic.Uint64
}

// New creates an executor. maxWorkers <= 0 uses four workers per CPU.
func New(maxWorkers int) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 4
	}
	return &Executor{
		p:          pool.New().WithMaxGoroutines(maxWorkers),
		maxWorkers: maxWorkers,
	}
}

// Go schedules fn and reports whether it was accepted. It returns false
// without running fn once the executor is closed, and blocks until a worker
// frees up while the pool is saturated. fn must not panic; wrap it with
// lifecycle accounting when it might.
func (e *Executor) Go(fn func()) bool {
	e.inflight.Add(1)
	defer e.inflight.Add(-1)

	if e.closed.Load() {
		e.rejected.Add(1)
		logger.Warn("Executor closed, dropping task")
		return false
	}
	e.submitted.Add(1)
	e.p.Go(fn)
	return true
}

// Wait closes the executor and blocks until every scheduled task has
// returned. Only the first call waits.
func (e *Executor) Wait() {
	if !e.waited.CompareAndSwap(false, true) {
		return
	}
	e.closed.Store(true)

	// Submissions that passed the closed check must reach the pool first.
	for e.inflight.Load() > 0 {
		time.Sleep(time.Millisecond)
	}
	e.p.Wait()
	logger.Debug("Executor drained", "submitted", e.submitted.Load())
}

// MaxWorkers returns the concurrency limit.
func (e *Executor) MaxWorkers() int { return e.maxWorkers }

// Submitted returns how many tasks were accepted.
func (e *Executor) Submitted() uint64 { return e.submitted.Load() }

// Rejected returns how many tasks were dropped after Wait.
func (e *Executor) Rejected() uint64 { return e.rejected.Load() }

// Closed reports whether Wait has been called.
func (e *Executor) Closed() bool { return e.closed.Load() }
