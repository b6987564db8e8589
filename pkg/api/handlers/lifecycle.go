package handlers

import (
	"net/http"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/internal/telemetry"
	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// StopResponse reports the effect of a shutdown or reload request.
type StopResponse struct {
	// Accepted is true when this request decided the outcome. A request
	// that loses to an earlier one is still broadcast but changes nothing.
	Accepted bool   `json:"accepted"`
	Outcome  string `json:"outcome"`
	Signal   string `json:"signal"`
}

// LifecycleHandler exposes the state and its stop transitions.
type LifecycleHandler struct {
	state *lifecycle.State
}

// NewLifecycleHandler creates a lifecycle handler for st.
func NewLifecycleHandler(st *lifecycle.State) *LifecycleHandler {
	return &LifecycleHandler{state: st}
}

// Status handles GET /api/v1/status.
func (h *LifecycleHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Status())
}

// Shutdown handles POST /api/v1/shutdown.
func (h *LifecycleHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, false, lifecycle.SignalShutdown)
}

// Reload handles POST /api/v1/reload.
func (h *LifecycleHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, true, lifecycle.SignalReload)
}

func (h *LifecycleHandler) stop(w http.ResponseWriter, r *http.Request, reload bool, tag lifecycle.Signal) {
	accepted := h.state.Stop(reload, tag)
	outcome := h.state.Outcome()

	telemetry.AddEvent(r.Context(), "stop.requested",
		telemetry.Signal(string(tag)),
		telemetry.Outcome(outcome.String()))
	logger.InfoCtx(r.Context(), "Stop requested via API",
		logger.KeySignal, string(tag),
		"accepted", accepted)

	writeJSON(w, http.StatusAccepted, StopResponse{
		Accepted: accepted,
		Outcome:  outcome.String(),
		Signal:   string(tag),
	})
}
