package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/config"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLevels struct {
	mu    sync.Mutex
	level string
}

func (f *fakeLevels) Level() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *fakeLevels) SetLevel(level string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
	return nil
}

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		st := New(nil, nil, nil)
		require.NotNil(t, st.Config())
		assert.Equal(t, config.DefaultShutdownTimeout, st.Config().ShutdownTimeout)
	})

	t.Run("fresh state is running", func(t *testing.T) {
		st := New(nil, nil, nil)
		assert.False(t, st.Stopping())
		assert.False(t, st.Reloading())
		assert.Equal(t, OutcomeRunning, st.Outcome())
		assert.Equal(t, CounterSnapshot{}, st.Counters().Snapshot())
		assert.Zero(t, st.Subscribers())
	})

	t.Run("instances get distinct ids", func(t *testing.T) {
		assert.NotEqual(t, New(nil, nil, nil).ID(), New(nil, nil, nil).ID())
	})

	t.Run("config is shared by reference", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		st := New(cfg, nil, nil)
		assert.Same(t, cfg, st.Config())
	})

	t.Run("level handle is exposed", func(t *testing.T) {
		levels := &fakeLevels{level: "INFO"}
		st := New(nil, nil, levels)
		require.NoError(t, st.Levels().SetLevel("DEBUG"))
		assert.Equal(t, "DEBUG", levels.Level())
	})
}

func TestRuntimeMissingPanics(t *testing.T) {
	st := New(nil, nil, nil)
	assert.PanicsWithValue(t, "lifecycle: runtime handle not available", func() {
		st.Runtime()
	})
	assert.Panics(t, func() {
		st.Spawn("orphan", func() {})
	})
	assert.Equal(t, uint64(0), st.Counters().Active(StageSpawn), "failed spawn must not enter")
}

func TestStop(t *testing.T) {
	t.Run("shutdown is terminal", func(t *testing.T) {
		st := New(nil, nil, nil)
		assert.True(t, st.Shutdown(SignalShutdown))
		assert.True(t, st.Stopping())
		assert.False(t, st.Reloading())
		assert.Equal(t, OutcomeTerminate, st.Outcome())
	})

	t.Run("reload is a restart", func(t *testing.T) {
		st := New(nil, nil, nil)
		assert.True(t, st.Reload(SignalReload))
		assert.True(t, st.Stopping())
		assert.True(t, st.Reloading())
		assert.Equal(t, OutcomeRestart, st.Outcome())
	})

	t.Run("first request wins", func(t *testing.T) {
		st := New(nil, nil, nil)
		assert.True(t, st.Reload(SignalReload))
		assert.False(t, st.Shutdown(SignalShutdown))
		assert.True(t, st.Reloading(), "later shutdown must not overwrite the restart")

		st = New(nil, nil, nil)
		assert.True(t, st.Shutdown(SignalShutdown))
		assert.False(t, st.Reload(SignalReload))
		assert.False(t, st.Reloading())
	})

	t.Run("stopping never reverts", func(t *testing.T) {
		st := New(nil, nil, nil)
		st.Shutdown(SignalShutdown)
		for i := 0; i < 10; i++ {
			st.Reload(SignalReload)
			st.Broadcast(SignalShutdown)
			assert.True(t, st.Stopping())
		}
	})

	t.Run("losers still broadcast", func(t *testing.T) {
		st := New(nil, nil, nil)
		st.Shutdown(SignalShutdown)

		sub := st.Subscribe()
		defer sub.Close()

		assert.False(t, st.Reload(SignalReload))
		tag, err := sub.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, SignalReload, tag)
	})
}

func TestStopConcurrentInitiators(t *testing.T) {
	for round := 0; round < 50; round++ {
		st := New(nil, nil, nil)

		var winners atomic.Int32
		var wg conc.WaitGroup
		for i := 0; i < 16; i++ {
			reload := i%2 == 0
			wg.Go(func() {
				if st.Stop(reload, SignalShutdown) {
					winners.Add(1)
				}
			})
		}
		wg.Wait()

		require.Equal(t, int32(1), winners.Load())
		require.True(t, st.Stopping())
		require.NotEqual(t, OutcomeRunning, st.Outcome())
	}
}

func TestStoppingObservedWithReloading(t *testing.T) {
	st := New(nil, nil, nil)

	var wg conc.WaitGroup
	wg.Go(func() {
		for {
			o := st.Outcome()
			if o != OutcomeRunning {
				assert.Equal(t, OutcomeRestart, o)
				return
			}
		}
	})
	time.Sleep(time.Millisecond)
	st.Reload(SignalReload)
	wg.Wait()
}

func TestBroadcastDoesNotChangeFlags(t *testing.T) {
	st := New(nil, nil, nil)
	sub := st.Subscribe()
	defer sub.Close()

	assert.Equal(t, 1, st.Broadcast(SignalReload))
	assert.False(t, st.Stopping())

	tag, err := sub.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, SignalReload, tag)
}

// groupRuntime runs tasks on a conc.WaitGroup and rejects them once closed.
type groupRuntime struct {
	wg     conc.WaitGroup
	closed atomic.Bool
}

func (g *groupRuntime) Go(fn func()) bool {
	if g.closed.Load() {
		return false
	}
	g.wg.Go(fn)
	return true
}

func TestSpawn(t *testing.T) {
	t.Run("counts completion", func(t *testing.T) {
		var rt groupRuntime
		st := New(nil, &rt, nil)

		for i := 0; i < 20; i++ {
			assert.True(t, st.Spawn("task", func() {}))
		}
		rt.wg.Wait()

		snap := st.Counters().Snapshot()
		assert.Equal(t, uint64(0), snap.SpawnActive)
		assert.Equal(t, uint64(20), snap.SpawnFinished)
		assert.Zero(t, snap.Panics)
	})

	t.Run("counts panic", func(t *testing.T) {
		var rt groupRuntime
		st := New(nil, &rt, nil)

		st.Spawn("boom", func() { panic("boom") })
		require.NotPanics(t, rt.wg.Wait)

		snap := st.Counters().Snapshot()
		assert.Equal(t, uint64(0), snap.SpawnActive)
		assert.Equal(t, uint64(0), snap.SpawnFinished)
		assert.Equal(t, uint64(1), snap.Panics)
	})

	t.Run("active while running", func(t *testing.T) {
		var rt groupRuntime
		st := New(nil, &rt, nil)

		release := make(chan struct{})
		st.Spawn("blocked", func() { <-release })
		assert.Equal(t, uint64(1), st.Counters().Active(StageSpawn))

		close(release)
		rt.wg.Wait()
		assert.Equal(t, uint64(0), st.Counters().Active(StageSpawn))
	})

	t.Run("rejected task is settled", func(t *testing.T) {
		var rt groupRuntime
		rt.closed.Store(true)
		st := New(nil, &rt, nil)

		ran := false
		assert.False(t, st.Spawn("late", func() { ran = true }))
		assert.False(t, ran)

		snap := st.Counters().Snapshot()
		assert.Equal(t, uint64(0), snap.SpawnActive)
		assert.Equal(t, uint64(0), snap.SpawnFinished)
		assert.Equal(t, uint64(1), snap.Panics)
		assert.True(t, snap.Idle())
	})
}

func TestStatus(t *testing.T) {
	st := New(nil, nil, &fakeLevels{level: "WARN"})
	sub := st.Subscribe()
	defer sub.Close()
	st.Counters().Enter(StageHandle)

	s := st.Status()
	assert.Equal(t, st.ID(), s.Instance)
	assert.Equal(t, "running", s.Phase)
	assert.False(t, s.Stopping)
	assert.Equal(t, "WARN", s.LogLevel)
	assert.Equal(t, 1, s.Subscribers)
	assert.Equal(t, uint64(1), s.Counters.HandleActive)

	st.Reload(SignalReload)
	s = st.Status()
	assert.Equal(t, "stopping", s.Phase)
	assert.True(t, s.Stopping)
	assert.True(t, s.Reloading)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "running", OutcomeRunning.String())
	assert.Equal(t, "terminate", OutcomeTerminate.String())
	assert.Equal(t, "restart", OutcomeRestart.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
