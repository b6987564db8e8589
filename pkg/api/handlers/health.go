package handlers

import (
	"net/http"

	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// HealthHandler serves the unauthenticated probes.
type HealthHandler struct {
	state *lifecycle.State
}

// NewHealthHandler creates a health handler for st.
func NewHealthHandler(st *lifecycle.State) *HealthHandler {
	return &HealthHandler{state: st}
}

// Liveness handles GET /health. It succeeds while the process can answer,
// including during a drain.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service":  "dittocore",
		"instance": h.state.ID(),
	}))
}

// Readiness handles GET /health/ready. It returns 503 once a stop has been
// requested so load balancers stop routing new work here.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	outcome := h.state.Outcome()
	data := map[string]interface{}{
		"instance": h.state.ID(),
		"phase":    outcome.String(),
	}
	if outcome != lifecycle.OutcomeRunning {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server is stopping", data))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}
