package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLevels struct {
	mu    sync.Mutex
	level string
}

func (s *stubLevels) Level() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *stubLevels) SetLevel(level string) error {
	switch strings.ToUpper(level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return errors.New("invalid log level: " + level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = strings.ToUpper(level)
	return nil
}

func TestLiveness(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	st.Shutdown(lifecycle.SignalShutdown)

	w := httptest.NewRecorder()
	NewHealthHandler(st).Liveness(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code, "liveness stays green while draining")
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadiness(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	h := NewHealthHandler(st)

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	st.Reload(lifecycle.SignalReload)

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "server is stopping", resp.Error)
}

func TestStatus(t *testing.T) {
	st := lifecycle.New(nil, nil, &stubLevels{level: "INFO"})
	st.Counters().Enter(lifecycle.StageHandle)

	w := httptest.NewRecorder()
	NewLifecycleHandler(st).Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var status lifecycle.Status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, st.ID(), status.Instance)
	assert.Equal(t, "INFO", status.LogLevel)
	assert.Equal(t, uint64(1), status.Counters.HandleActive)
}

func TestShutdownAndReload(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	h := NewLifecycleHandler(st)

	w := httptest.NewRecorder()
	h.Reload(w, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp StopResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "restart", resp.Outcome)
	assert.Equal(t, "reload", resp.Signal)

	w = httptest.NewRecorder()
	h.Shutdown(w, httptest.NewRequest(http.MethodPost, "/api/v1/shutdown", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Accepted, "first request already decided the outcome")
	assert.Equal(t, "restart", resp.Outcome)
	assert.True(t, st.Reloading())
}

func TestLogLevel(t *testing.T) {
	levels := &stubLevels{level: "INFO"}
	h := NewLogLevelHandler(levels)

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/v1/log-level", nil))
	assert.JSONEq(t, `{"level":"INFO"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Put(w, httptest.NewRequest(http.MethodPut, "/api/v1/log-level", strings.NewReader(`{"level":"debug"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DEBUG", levels.Level())

	w = httptest.NewRecorder()
	h.Put(w, httptest.NewRequest(http.MethodPut, "/api/v1/log-level", strings.NewReader(`{"level":"loud"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	assert.Equal(t, "DEBUG", levels.Level())

	w = httptest.NewRecorder()
	h.Put(w, httptest.NewRequest(http.MethodPut, "/api/v1/log-level", strings.NewReader(`{"lvl":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogLevelUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	NewLogLevelHandler(nil).Get(w, httptest.NewRequest(http.MethodGet, "/api/v1/log-level", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWriteProblem(t *testing.T) {
	w := httptest.NewRecorder()
	ServiceUnavailable(w, "already stopping")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var p Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, "Service Unavailable", p.Title)
	assert.Equal(t, http.StatusServiceUnavailable, p.Status)
	assert.Equal(t, "already stopping", p.Detail)
}

func readEvent(t *testing.T, r *bufio.Reader) (string, SignalEvent) {
	t.Helper()
	var name string
	var ev SignalEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		case line == "" && name != "":
			return name, ev
		}
	}
}

func TestSignalStream(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(NewSignalsHandler(st, 0).Stream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, body)
	require.Equal(t, "hello", name)

	st.Broadcast(lifecycle.SignalReload)
	name, ev := readEvent(t, body)
	assert.Equal(t, "signal", name)
	assert.Equal(t, "reload", ev.Signal)
	assert.False(t, ev.Stopping)

	st.Shutdown(lifecycle.SignalShutdown)
	name, ev = readEvent(t, body)
	assert.Equal(t, "signal", name)
	assert.Equal(t, "shutdown", ev.Signal)
	assert.True(t, ev.Stopping)

	// Stream ends once stopping was observed.
	_, err = body.ReadString('\n')
	assert.Error(t, err)
	require.Eventually(t, func() bool { return st.Subscribers() == 0 }, time.Second, time.Millisecond)
}

func TestSignalStreamAlreadyStopping(t *testing.T) {
	st := lifecycle.New(nil, nil, nil)
	st.Shutdown(lifecycle.SignalShutdown)

	w := httptest.NewRecorder()
	NewSignalsHandler(st, 0).Stream(w, httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil))

	assert.Contains(t, w.Body.String(), "event: hello")
	assert.Contains(t, w.Body.String(), `"stopping":true`)
	assert.Zero(t, st.Subscribers())
}
