package handlers

import (
	"net/http"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// LogLevel is the body of the log-level endpoints.
type LogLevel struct {
	Level string `json:"level"`
}

// LogLevelHandler reads and changes verbosity through the state's level
// control.
type LogLevelHandler struct {
	levels lifecycle.LevelControl
}

// NewLogLevelHandler creates a handler for levels, which may be nil.
func NewLogLevelHandler(levels lifecycle.LevelControl) *LogLevelHandler {
	return &LogLevelHandler{levels: levels}
}

// Get handles GET /api/v1/log-level.
func (h *LogLevelHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.levels == nil {
		ServiceUnavailable(w, "log level control not available")
		return
	}
	writeJSON(w, http.StatusOK, LogLevel{Level: h.levels.Level()})
}

// Put handles PUT /api/v1/log-level.
func (h *LogLevelHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h.levels == nil {
		ServiceUnavailable(w, "log level control not available")
		return
	}

	var req LogLevel
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.levels.SetLevel(req.Level); err != nil {
		UnprocessableEntity(w, err.Error())
		return
	}

	logger.InfoCtx(r.Context(), "Log level changed via API",
		logger.KeyTo, h.levels.Level())
	writeJSON(w, http.StatusOK, LogLevel{Level: h.levels.Level()})
}
