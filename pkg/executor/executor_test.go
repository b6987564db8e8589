package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	e := New(0)
	assert.Positive(t, e.MaxWorkers())
	assert.Equal(t, 3, New(3).MaxWorkers())
}

func TestRunsAllTasks(t *testing.T) {
	e := New(4)
	var n atomic.Int32
	for i := 0; i < 100; i++ {
		require.True(t, e.Go(func() { n.Add(1) }))
	}
	e.Wait()

	assert.Equal(t, int32(100), n.Load())
	assert.Equal(t, uint64(100), e.Submitted())
	assert.True(t, e.Closed())
}

func TestBoundsConcurrency(t *testing.T) {
	const limit = 3
	e := New(limit)

	var running, peak atomic.Int32
	for i := 0; i < 20; i++ {
		e.Go(func() {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
		})
	}
	e.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestRejectsAfterWait(t *testing.T) {
	e := New(2)
	e.Wait()
	e.Wait()

	ran := false
	assert.False(t, e.Go(func() { ran = true }))
	assert.False(t, ran)
	assert.Equal(t, uint64(1), e.Rejected())
}

func TestAsLifecycleRuntime(t *testing.T) {
	e := New(2)
	st := lifecycle.New(nil, e, nil)

	st.Spawn("ok", func() {})
	st.Spawn("bad", func() { panic("boom") })
	require.NotPanics(t, e.Wait)

	snap := st.Counters().Snapshot()
	assert.Equal(t, uint64(0), snap.SpawnActive)
	assert.Equal(t, uint64(1), snap.SpawnFinished)
	assert.Equal(t, uint64(1), snap.Panics)
}

func TestSpawnAfterWaitSettles(t *testing.T) {
	e := New(2)
	st := lifecycle.New(nil, e, nil)

	assert.True(t, st.Spawn("early", func() {}))
	e.Wait()

	ran := false
	assert.False(t, st.Spawn("late", func() { ran = true }))
	assert.False(t, ran)
	assert.Equal(t, uint64(1), e.Rejected())

	snap := st.Counters().Snapshot()
	assert.Equal(t, uint64(0), snap.SpawnActive)
	assert.Equal(t, uint64(1), snap.SpawnFinished)
	assert.Equal(t, uint64(1), snap.Panics)
	assert.True(t, snap.Idle())
}
