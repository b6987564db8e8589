package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/api/handlers"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/marmos91/dittocore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-only-32chars"

// testSetup creates a state and admin config for testing.
func testSetup(t *testing.T) (*lifecycle.State, config.AdminConfig) {
	t.Helper()
	t.Setenv(config.EnvAdminSecret, "")

	cfg := config.GetDefaultConfig()
	cfg.Admin.Port = 0
	cfg.Admin.JWT.Secret = testSecret

	return lifecycle.New(cfg, nil, logger.Levels()), cfg.Admin
}

func newTestServer(t *testing.T) (*Server, *lifecycle.State) {
	t.Helper()
	st, cfg := testSetup(t)
	srv, err := NewServer(cfg, st, nil)
	require.NoError(t, err)
	return srv, st
}

func token(t *testing.T, srv *Server, role string) string {
	t.Helper()
	tok, err := srv.JWTService().Issue("tester", role, time.Minute)
	require.NoError(t, err)
	return tok.AccessToken
}

func do(srv *Server, method, path, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresSecret(t *testing.T) {
	st, cfg := testSetup(t)
	cfg.JWT.Secret = ""

	_, err := NewServer(cfg, st, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidSecretLength)
	assert.Contains(t, err.Error(), config.EnvAdminSecret)
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusTemporaryRedirect, do(srv, http.MethodGet, "/", "", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/v1/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, handlers.ContentTypeProblemJSON, w.Header().Get("Content-Type"))

	w = do(srv, http.MethodGet, "/api/v1/status", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestViewerCannotMutate(t *testing.T) {
	srv, st := newTestServer(t)
	viewer := token(t, srv, auth.RoleViewer)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/v1/status", viewer, "").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/v1/log-level", viewer, "").Code)
	assert.Equal(t, http.StatusForbidden, do(srv, http.MethodPost, "/api/v1/shutdown", viewer, "").Code)
	assert.Equal(t, http.StatusForbidden, do(srv, http.MethodPost, "/api/v1/reload", viewer, "").Code)
	assert.Equal(t, http.StatusForbidden, do(srv, http.MethodPut, "/api/v1/log-level", viewer, `{"level":"DEBUG"}`).Code)
	assert.False(t, st.Stopping())
}

func TestAdminReloadThenReadiness(t *testing.T) {
	srv, st := newTestServer(t)
	admin := token(t, srv, auth.RoleAdmin)

	w := do(srv, http.MethodPost, "/api/v1/reload", admin, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp handlers.StopResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "restart", resp.Outcome)
	assert.True(t, st.Reloading())

	assert.Equal(t, http.StatusServiceUnavailable, do(srv, http.MethodGet, "/health/ready", "", "").Code)
}

func TestAdminLogLevel(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := token(t, srv, auth.RoleAdmin)
	prev := logger.GetLevel().String()
	t.Cleanup(func() { _ = logger.SetLevel(prev) })

	w := do(srv, http.MethodPut, "/api/v1/log-level", admin, `{"level":"ERROR"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ERROR", logger.GetLevel().String())

	w = do(srv, http.MethodPut, "/api/v1/log-level", admin, `{"level":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRequestsAreAccounted(t *testing.T) {
	srv, st := newTestServer(t)
	viewer := token(t, srv, auth.RoleViewer)

	for i := 0; i < 3; i++ {
		do(srv, http.MethodGet, "/api/v1/status", viewer, "")
	}
	do(srv, http.MethodGet, "/health", "", "")

	snap := st.Counters().Snapshot()
	assert.Equal(t, uint64(0), snap.HandleActive)
	assert.Equal(t, uint64(4), snap.HandleFinished)
}

func TestHTTPMetricsRecorded(t *testing.T) {
	st, cfg := testSetup(t)
	reg := prometheus.NewRegistry()
	srv, err := NewServer(cfg, st, metrics.NewHTTPMetrics(reg))
	require.NoError(t, err)

	do(srv, http.MethodGet, "/health", "", "")
	do(srv, http.MethodGet, "/api/v1/status", "", "")

	n, err := testutil.GatherAndCount(reg, "dittocore_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per route and status")
}

func TestServerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Port() != 0 }, 2*time.Second, time.Millisecond)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port()))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
	}
	assert.NoError(t, srv.Stop(context.Background()), "Stop is idempotent")
}

func TestServeAsAuxiliaryServer(t *testing.T) {
	srv, st := newTestServer(t)
	st.Config().ShutdownTimeout = time.Second
	svc := lifecycle.NewService(st)
	svc.AddServer("api", srv)

	done := make(chan lifecycle.Outcome, 1)
	go func() {
		o, _ := svc.Serve(context.Background())
		done <- o
	}()

	require.Eventually(t, func() bool { return srv.Port() != 0 }, 2*time.Second, time.Millisecond)
	admin := token(t, srv, auth.RoleAdmin)

	var code int
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d/api/v1/shutdown", srv.Port()), nil)
		req.Header.Set("Authorization", "Bearer "+admin)
		r, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		code = r.StatusCode
		_ = r.Body.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusAccepted, code)

	select {
	case o := <-done:
		assert.Equal(t, lifecycle.OutcomeTerminate, o)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after API shutdown")
	}
}
