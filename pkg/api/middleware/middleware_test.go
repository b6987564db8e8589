package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAccountingCountsRequests(t *testing.T) {
	var c lifecycle.Counters
	h := Accounting(&c)(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint64(1), c.Finished(lifecycle.StageHandle))
	assert.Equal(t, uint64(0), c.Active(lifecycle.StageHandle))
}

func TestAccountingRecoversPanic(t *testing.T) {
	var c lifecycle.Counters
	h := Accounting(&c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Panics)
	assert.Equal(t, uint64(0), snap.HandleActive)
	assert.Equal(t, uint64(0), snap.HandleFinished)
}

func TestAccountingKeepsWrittenStatus(t *testing.T) {
	var c lifecycle.Counters
	h := Accounting(&c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("after header")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, uint64(1), c.Panics())
}

func TestAccountingRepanicsAbort(t *testing.T) {
	var c lifecycle.Counters
	h := Accounting(&c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, uint64(1), c.Panics())
}

func TestJWTAuth(t *testing.T) {
	svc, err := auth.NewJWTService(auth.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	tok, err := svc.Issue("ops", auth.RoleViewer, time.Minute)
	require.NoError(t, err)

	var seen *auth.Claims
	h := JWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ClaimsFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + tok.AccessToken, http.StatusOK},
		{"case insensitive scheme", "bearer " + tok.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "ops", seen.Subject)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin()(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Role: auth.RoleViewer}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Role: auth.RoleAdmin}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1:5555"))
	assert.Equal(t, "::1", clientIP("[::1]:80"))
	assert.Equal(t, "weird", clientIP("weird"))
}
