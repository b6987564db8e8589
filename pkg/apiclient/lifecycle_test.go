package apiclient

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/api"
	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-only-32chars"

type testEnv struct {
	state  *lifecycle.State
	server *httptest.Server
	admin  *Client
	viewer *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(config.EnvAdminSecret, "")

	cfg := config.GetDefaultConfig()
	cfg.Admin.Port = 0
	cfg.Admin.JWT.Secret = testSecret
	st := lifecycle.New(cfg, nil, logger.Levels())

	srv, err := api.NewServer(cfg.Admin, st, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	issue := func(role string) string {
		tok, err := srv.JWTService().Issue("client-test", role, time.Minute)
		require.NoError(t, err)
		return tok.AccessToken
	}

	base := New(ts.URL)
	return &testEnv{
		state:  st,
		server: ts,
		admin:  base.WithToken(issue(auth.RoleAdmin)),
		viewer: base.WithToken(issue(auth.RoleViewer)),
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	health, err := New(env.server.URL).Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	require.NoError(t, New(env.server.URL).Ready(ctx))

	env.state.Shutdown(lifecycle.SignalShutdown)
	err = New(env.server.URL).Ready(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnavailable())
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.viewer.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, env.state.ID(), st.Instance)
	assert.Equal(t, "running", st.Phase)
	assert.False(t, st.Stopping)
}

func TestStatusRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := New(env.server.URL).Status(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
}

func TestReloadThenShutdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.admin.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "restart", res.Outcome)

	res, err = env.admin.Shutdown(ctx)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "restart", res.Outcome)
	assert.True(t, env.state.Reloading())
}

func TestViewerCannotShutdown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.viewer.Shutdown(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, env.state.Stopping())
}

func TestLogLevelRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	t.Cleanup(func() { _ = logger.SetLevel("INFO") })

	level, err := env.admin.SetLogLevel(ctx, "debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level)

	level, err = env.viewer.LogLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level)

	_, err = env.admin.SetLogLevel(ctx, "loud")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidationError())
}

func TestWatchSignals(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []SignalEvent
	errCh := make(chan error, 1)
	go func() {
		errCh <- env.viewer.WatchSignals(ctx, func(ev SignalEvent) error {
			events = append(events, ev)
			if ev.Event == "hello" {
				env.state.Reload(lifecycle.SignalReload)
			}
			return nil
		})
	}()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("signal stream did not end after reload")
	}

	require.Len(t, events, 2)
	assert.Equal(t, "hello", events[0].Event)
	assert.Equal(t, "signal", events[1].Event)
	assert.Equal(t, "reload", events[1].Signal)
	assert.True(t, events[1].Stopping)
	assert.True(t, events[1].Reloading)
}

func TestReadEventsStopsOnCallbackError(t *testing.T) {
	stream := ": keep-alive\n\nevent: hello\ndata: {\"stopping\":false,\"reloading\":false}\n\nevent: signal\ndata: {\"signal\":\"shutdown\",\"stopping\":true,\"reloading\":false}\n\n"
	errStop := errors.New("stop")

	var seen []string
	err := readEvents(strings.NewReader(stream), func(ev SignalEvent) error {
		seen = append(seen, ev.Event)
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{"hello"}, seen)
}
