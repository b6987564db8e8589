package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/marmos91/dittocore/internal/logger"
)

// NotifySignals bridges OS signals into st until ctx is done or the
// returned stop function is called. Terminal signals request a shutdown;
// reload signals request a restart in place. Each signal is handled as a
// spawned task when st has a runtime.
func NotifySignals(ctx context.Context, st *State) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, append(terminalSignals(), reloadSignals()...)...)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-ch:
				st.dispatch("os-signal", func() { handleOSSignal(st, sig) })
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			cancel()
			wg.Wait()
		})
	}
}

func handleOSSignal(st *State, sig os.Signal) {
	if isReloadSignal(sig) {
		logger.Info("Reload signal received", logger.KeySignal, sig.String())
		st.Reload(SignalReload)
		return
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown", logger.KeySignal, sig.String())
	st.Shutdown(SignalShutdown)
}

func isReloadSignal(sig os.Signal) bool {
	for _, s := range reloadSignals() {
		if s == sig {
			return true
		}
	}
	return false
}
