package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct{}

func (fakeExec) MaxWorkers() int   { return 8 }
func (fakeExec) Submitted() uint64 { return 42 }
func (fakeExec) Rejected() uint64  { return 1 }

func TestCollectorReportsCounters(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	c := st.Counters()
	c.Enter(lifecycle.StageHandle)
	c.Enter(lifecycle.StageHandle)
	c.Exit(lifecycle.StageHandle)
	c.Enter(lifecycle.StageSpawn)
	c.Abort(lifecycle.StageSpawn)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(st, nil)))

	expected := `
# HELP dittocore_lifecycle_active Units of work currently in flight by stage
# TYPE dittocore_lifecycle_active gauge
dittocore_lifecycle_active{stage="handle"} 1
dittocore_lifecycle_active{stage="spawn"} 0
# HELP dittocore_lifecycle_finished_total Units of work completed normally by stage
# TYPE dittocore_lifecycle_finished_total counter
dittocore_lifecycle_finished_total{stage="handle"} 1
dittocore_lifecycle_finished_total{stage="spawn"} 0
# HELP dittocore_lifecycle_panics_total Units of work that ended in a panic
# TYPE dittocore_lifecycle_panics_total counter
dittocore_lifecycle_panics_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dittocore_lifecycle_active",
		"dittocore_lifecycle_finished_total",
		"dittocore_lifecycle_panics_total"))
}

func TestCollectorReportsFlags(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	sub := st.Subscribe()
	defer sub.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(st, fakeExec{})))

	st.Reload(lifecycle.SignalReload)

	expected := `
# HELP dittocore_lifecycle_reloading 1 when the requested stop is a restart
# TYPE dittocore_lifecycle_reloading gauge
dittocore_lifecycle_reloading 1
# HELP dittocore_lifecycle_signal_subscribers Live lifecycle signal subscriptions
# TYPE dittocore_lifecycle_signal_subscribers gauge
dittocore_lifecycle_signal_subscribers 1
# HELP dittocore_lifecycle_stopping 1 once a stop has been requested
# TYPE dittocore_lifecycle_stopping gauge
dittocore_lifecycle_stopping 1
# HELP dittocore_executor_submitted_total Tasks accepted by the executor
# TYPE dittocore_executor_submitted_total counter
dittocore_executor_submitted_total 42
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dittocore_lifecycle_reloading",
		"dittocore_lifecycle_signal_subscribers",
		"dittocore_lifecycle_stopping",
		"dittocore_executor_submitted_total"))
}

func TestCollectorLint(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	problems, err := testutil.CollectAndLint(NewCollector(st, fakeExec{}))
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Begin()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))

	m.Observe("/api/v1/status", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/status", "GET", "200")))
}

func TestHTTPMetricsNil(t *testing.T) {
	var m *HTTPMetrics
	require.NotPanics(t, func() {
		m.Begin()
		m.Observe("/", "GET", 200, time.Millisecond)
	})
}

func TestRegistryFreshPerIncarnation(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	require.NotPanics(t, func() {
		NewRegistry(st, nil)
		NewRegistry(st, nil)
	})

	reg := NewRegistry(st, nil)
	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["dittocore_lifecycle_uptime_seconds"])
	assert.True(t, names["go_goroutines"])
}

func TestServerHandler(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	reg := NewRegistry(st, nil)
	srv := NewServer(0, reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dittocore_lifecycle_info")
	assert.Contains(t, rec.Body.String(), st.ID())
}

func TestServerStartStop(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	srv := NewServer(0, NewRegistry(st, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Port() != 0 }, time.Second, time.Millisecond)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://127.0.0.1:" + strconv.Itoa(srv.Port()) + "/metrics")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "dittocore_lifecycle_stopping")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.NoError(t, srv.Stop(context.Background()))
}
