package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// SignalEvent is the data of one server-sent event on the signal stream.
type SignalEvent struct {
	Signal    string `json:"signal,omitempty"`
	Missed    uint64 `json:"missed,omitempty"`
	Stopping  bool   `json:"stopping"`
	Reloading bool   `json:"reloading"`
}

// SignalsHandler streams lifecycle signals as server-sent events.
type SignalsHandler struct {
	state     *lifecycle.State
	heartbeat time.Duration
}

// NewSignalsHandler creates a stream handler for st. heartbeat <= 0
// disables keep-alive comments.
func NewSignalsHandler(st *lifecycle.State, heartbeat time.Duration) *SignalsHandler {
	return &SignalsHandler{state: st, heartbeat: heartbeat}
}

// Stream handles GET /api/v1/signals. Each signal becomes a "signal"
// event; a lagged subscriber gets a "lagged" event. The stream ends after
// the first event observed while the state is stopping, so it never holds
// up a drain.
func (h *SignalsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError(w, "streaming not supported")
		return
	}

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := h.state.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := h.write(w, "hello", SignalEvent{}); err != nil {
		return
	}
	flusher.Flush()
	if h.state.Stopping() {
		return
	}

	ctx := r.Context()
	var tick <-chan time.Time
	if h.heartbeat > 0 {
		t := time.NewTicker(h.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	done := make(chan struct{})
	defer close(done)

	recv := make(chan recvResult, 1)
	go func() {
		for {
			tag, err := sub.Recv(ctx)
			select {
			case recv <- recvResult{tag: tag, err: err}:
			case <-done:
				return
			}
			if err != nil && !errors.Is(err, lifecycle.ErrLagged) {
				return
			}
		}
	}()

	for {
		select {
		case <-tick:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case res := <-recv:
			var err error
			var lag *lifecycle.LaggedError
			switch {
			case res.err == nil:
				err = h.write(w, "signal", SignalEvent{Signal: string(res.tag)})
			case errors.As(res.err, &lag):
				err = h.write(w, "lagged", SignalEvent{Missed: lag.Missed})
			default:
				return
			}
			if err != nil {
				return
			}
			flusher.Flush()
			if h.state.Stopping() {
				logger.DebugCtx(ctx, "Closing signal stream, server is stopping")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

type recvResult struct {
	tag lifecycle.Signal
	err error
}

func (h *SignalsHandler) write(w http.ResponseWriter, event string, ev SignalEvent) error {
	ev.Stopping = h.state.Stopping()
	ev.Reloading = h.state.Reloading()
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
